package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("dial tcp: refused")

	tests := []struct {
		name string
		err  *AppError
		code int
		typ  string
	}{
		{"input", NewInput("missing login_challenge"), http.StatusBadRequest, TypeInput},
		{"unauthorized", NewUnauthorized("no session"), http.StatusUnauthorized, TypeUnauthorized},
		{"unavailable", NewBackendUnavailable(cause), http.StatusServiceUnavailable, TypeBackendUnavailable},
		{"rejected", NewBackendRejected(cause), http.StatusBadRequest, TypeBackendRejected},
		{"internal", NewInternal(cause), http.StatusInternalServerError, TypeInternal},
		{"not found", NewNotFound("nope"), http.StatusNotFound, TypeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestAs_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("consent: %w", NewInput("missing consent_challenge"))

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, TypeInput, appErr.Type)
	assert.True(t, IsType(wrapped, TypeInput))
	assert.False(t, IsType(wrapped, TypeInternal))
}

func TestSafeMessage_HidesInternalDetails(t *testing.T) {
	raw := errors.New("Error 1146: Table 'identity.users' doesn't exist")
	assert.Equal(t, "an unexpected error occurred", SafeMessage(raw))
	assert.Equal(t, http.StatusInternalServerError, SafeCode(raw))

	internal := NewInternal(raw)
	assert.NotContains(t, SafeMessage(internal), "users")
	assert.ErrorIs(t, internal, raw)
}
