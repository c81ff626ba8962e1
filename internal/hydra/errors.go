package hydra

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is wrapped by BackendError when a success response
// cannot be decoded or lacks a required field.
var ErrMalformedResponse = errors.New("malformed backend response")

// BackendError describes a failed call to the authorization backend.
// StatusCode is zero when no response was received.
type BackendError struct {
	// Op is the client operation, e.g. "accept_login".
	Op string

	// URL is the request URL without its query string.
	URL string

	StatusCode int

	// Body is a preview of the response body, limited to errorPreviewSize.
	Body string

	Err error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("hydra %s: %s: %v", e.Op, e.URL, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("hydra %s: %s returned %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("hydra %s: %s returned %d: %s", e.Op, e.URL, e.StatusCode, e.Body)
	}
}

// Unwrap returns the underlying transport or decoding error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the user may succeed by trying again: the
// backend could not be reached or answered with a server error.
func (e *BackendError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// IsStatus reports whether err is a BackendError with the given status.
// A statusCode of 0 matches any BackendError.
func IsStatus(err error, statusCode int) bool {
	var be *BackendError
	if !errors.As(err, &be) {
		return false
	}
	return statusCode == 0 || be.StatusCode == statusCode
}
