package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/acetvpair/tvlink-go/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Details any                 `json:"details,omitempty"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	status := statusFromCode(appErr.Code)
	response := ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}

	WriteJSON(w, status, response)
}

// statusFromCode maps ErrorCode to HTTP status code
func statusFromCode(code apperrors.ErrorCode) int {
	switch code {
	// 400 Bad Request
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeMissingRequired,
		apperrors.ErrCodeInvalidCID,
		apperrors.ErrCodeInvalidCode:
		return http.StatusBadRequest

	// 409 Conflict
	case apperrors.ErrCodeNotPaired,
		apperrors.ErrCodePairingRevoked,
		apperrors.ErrCodeSubmitInFlight,
		apperrors.ErrCodeCanceled:
		return http.StatusConflict

	// 502 Bad Gateway
	case apperrors.ErrCodeNetwork,
		apperrors.ErrCodeDeviceUnreachable,
		apperrors.ErrCodeDeliveryFailed,
		apperrors.ErrCodeCastUnavailable:
		return http.StatusBadGateway

	// 500 Internal Server Error
	case apperrors.ErrCodeInternal,
		apperrors.ErrCodeStore:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
