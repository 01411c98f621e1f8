package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	t.Run("formats code and message", func(t *testing.T) {
		err := NotPaired()
		assert.Equal(t, "NOT_PAIRED: No TV is paired", err.Error())
	})

	t.Run("carries and unwraps a cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Network(cause)

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("with cause is chainable", func(t *testing.T) {
		cause := errors.New("boom")
		err := Canceled().WithCause(cause)
		assert.ErrorIs(t, err, cause)
	})
}

func TestIsCode(t *testing.T) {
	t.Run("matches direct app errors", func(t *testing.T) {
		assert.True(t, IsCode(PairingRevoked(), ErrCodePairingRevoked))
		assert.False(t, IsCode(PairingRevoked(), ErrCodeNotPaired))
	})

	t.Run("matches wrapped app errors", func(t *testing.T) {
		err := fmt.Errorf("check failed: %w", PairingRevoked())
		assert.True(t, IsCode(err, ErrCodePairingRevoked))
	})

	t.Run("plain errors match nothing", func(t *testing.T) {
		assert.False(t, IsCode(errors.New("plain"), ErrCodeNetwork))
		assert.False(t, IsCode(nil, ErrCodeNetwork))
	})
}

func TestAsAppError(t *testing.T) {
	t.Run("extracts through wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", InvalidPairCode("Code expired"))

		appErr, ok := AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, ErrCodeInvalidCode, appErr.Code)
		assert.Equal(t, "Code expired", appErr.Message)
	})

	t.Run("reports false for plain errors", func(t *testing.T) {
		_, ok := AsAppError(errors.New("plain"))
		assert.False(t, ok)
	})
}

func TestConstructorDefaults(t *testing.T) {
	t.Run("empty detail falls back to a generic message", func(t *testing.T) {
		assert.NotEmpty(t, InvalidPairCode("").Message)
		assert.NotEmpty(t, DeliveryFailed("").Message)
	})
}
