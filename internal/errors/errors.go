package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Pairing
	ErrCodeNotPaired      ErrorCode = "NOT_PAIRED"
	ErrCodePairingRevoked ErrorCode = "PAIRING_REVOKED"
	ErrCodeInvalidCode    ErrorCode = "INVALID_PAIR_CODE"
	ErrCodeSubmitInFlight ErrorCode = "SUBMISSION_IN_FLIGHT"

	// Dispatch
	ErrCodeInvalidCID        ErrorCode = "INVALID_CID"
	ErrCodeDeviceUnreachable ErrorCode = "DEVICE_UNREACHABLE"
	ErrCodeDeliveryFailed    ErrorCode = "DELIVERY_FAILED"
	ErrCodeCastUnavailable   ErrorCode = "CAST_UNAVAILABLE"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Transport
	ErrCodeCanceled ErrorCode = "CANCELED"
	ErrCodeNetwork  ErrorCode = "NETWORK_ERROR"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeStore    ErrorCode = "STORE_ERROR"
)

// AppError is a structured error that can be surfaced to the UI layer
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func NotPaired() *AppError {
	return New(ErrCodeNotPaired, "No TV is paired")
}

func PairingRevoked() *AppError {
	return New(ErrCodePairingRevoked, "TV is no longer linked to this client")
}

func InvalidPairCode(detail string) *AppError {
	if detail == "" {
		detail = "Invalid or expired code"
	}
	return New(ErrCodeInvalidCode, detail)
}

func SubmissionInFlight() *AppError {
	return New(ErrCodeSubmitInFlight, "A pairing submission is already in flight")
}

func InvalidCID() *AppError {
	return New(ErrCodeInvalidCID, "Could not extract a content id from this link")
}

func DeviceUnreachable(reason string) *AppError {
	e := New(ErrCodeDeviceUnreachable, "TV is not reachable right now")
	if reason != "" {
		e.Details = reason
	}
	return e
}

func DeliveryFailed(message string) *AppError {
	if message == "" {
		message = "Send failed"
	}
	return New(ErrCodeDeliveryFailed, message)
}

func CastUnavailable() *AppError {
	return New(ErrCodeCastUnavailable, "Could not connect via cast")
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func Canceled() *AppError {
	return New(ErrCodeCanceled, "Request superseded")
}

func Network(cause error) *AppError {
	return Wrap(ErrCodeNetwork, "Network error", cause)
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Store(cause error) *AppError {
	return Wrap(ErrCodeStore, "Local state error", cause)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
