package ruleapi

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNoData is returned when a stage is called without a payload.
var ErrNoData = eris.New("ruleapi: no data provided")

// StatusError is a terminal non-200 response. It is never retried.
type StatusError struct {
	Endpoint   Endpoint
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ruleapi: %s request failed with status %d", e.Endpoint, e.StatusCode)
}

// ErrorPayload is the structured value written in place of a result when a
// call fails.
func ErrorPayload(err error) map[string]any {
	payload := map[string]any{"error": err.Error()}
	var se *StatusError
	if errors.As(err, &se) {
		payload["error"] = "Request failed"
		payload["status_code"] = se.StatusCode
	}
	return payload
}
