// Package apperror provides the error types shared by every flow of the
// identity front-end. Each error carries an HTTP status code, a
// machine-readable type and a user-safe message. The Echo error handler in
// internal/app decides from the type whether the browser sees an error page
// or is sent to the configured failure URL.
//
// NEVER return raw database, backend or infrastructure errors to the client.
// Always wrap them in an apperror type or return a generic internal error.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types. The error handler switches on these values.
const (
	TypeNotFound           = "not_found"
	TypeBadRequest         = "bad_request"
	TypeInput              = "invalid_input"
	TypeUnauthorized       = "unauthorized"
	TypeBackendUnavailable = "backend_unavailable"
	TypeBackendRejected    = "backend_rejected"
	TypeInternal           = "internal_error"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 400, 503).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "invalid_input").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// --- Constructors ---

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    TypeNotFound,
		Message: message,
	}
}

// NewBadRequest creates a 400 error that is shown to the user on the error
// page, e.g. a used or unknown verification link.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeBadRequest,
		Message: message,
	}
}

// NewInput creates a 400 error for a missing or malformed flow parameter
// (challenge, return URL, consent decision). These are never recovered
// locally; the browser is sent to the failure URL.
func NewInput(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeInput,
		Message: message,
	}
}

// NewUnauthorized creates a 401 Unauthorized error.
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    TypeUnauthorized,
		Message: message,
	}
}

// NewBackendUnavailable creates a 503 error for authorization backend
// failures the user can retry (network errors, 5xx responses).
func NewBackendUnavailable(err error) *AppError {
	return &AppError{
		Code:     http.StatusServiceUnavailable,
		Type:     TypeBackendUnavailable,
		Message:  "The sign-in service is temporarily unavailable. Please try again in a moment.",
		Internal: err,
	}
}

// NewBackendRejected creates a 400 error for requests the authorization
// backend refused, typically an expired or unknown challenge. Retrying the
// same URL will not help; the user has to start over from the application.
func NewBackendRejected(err error) *AppError {
	return &AppError{
		Code:     http.StatusBadRequest,
		Type:     TypeBackendRejected,
		Message:  "This sign-in request has expired or is no longer valid. Please return to the application and sign in again.",
		Internal: err,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeInternal,
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// --- Inspection helpers ---

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, typ string) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == typ
}

// SafeMessage returns the client-safe error message from an error. If the
// error is an AppError, returns its Message field (which is safe to expose).
// For any other error type, returns a generic message to prevent leaking
// internal details like table names, backend URLs, or stack traces.
func SafeMessage(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the HTTP status code from an AppError, or 500 for
// any other error type.
func SafeCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
