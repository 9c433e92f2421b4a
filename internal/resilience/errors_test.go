package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("invalid input"), false},
		{"bare syscall", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), false},
		{"marked 500", NewTransientError(errors.New("restarting"), 500), true},
		{"marked transport", NewTransientError(errors.New("connection reset"), 0), true},
		{"wrapped by eris", eris.Wrap(NewTransientError(errors.New("x"), 500), "ruleapi: split"), true},
		{"cancelled", NewTransientError(context.Canceled, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	assert.True(t, IsTransientHTTPStatus(500))
	for _, code := range []int{200, 400, 404, 408, 429, 502, 503} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner, 500)

	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "root cause", te.Error())
	assert.Equal(t, 500, te.StatusCode)
}
