package resilience

import (
	"context"
	"errors"
	"net/http"
)

// TransientError marks a rule service failure that may succeed on a later
// attempt: a transport failure (StatusCode 0) or the designated retryable
// status.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable. statusCode is 0 when no
// response was received.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether err or any error in its chain is a
// TransientError. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var te *TransientError
	return errors.As(err, &te)
}

// IsTransientHTTPStatus reports whether the rule service status code is the
// designated retryable server error. Every other non-200 code is terminal.
func IsTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusInternalServerError
}
