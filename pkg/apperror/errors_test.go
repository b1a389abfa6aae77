package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestMapErrorToStatus(t *testing.T) {
	upstream := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found wrapped", fmt.Errorf("application not found: %w", ErrNotFound), http.StatusNotFound},
		{"forbidden", fmt.Errorf("directors only: %w", ErrForbidden), http.StatusForbidden},
		{"precondition", fmt.Errorf("cannot move: %w", ErrPrecondition), http.StatusConflict},
		{"conflict", ErrConflict, http.StatusConflict},
		{"rate limit", ErrRateLimitExceeded, http.StatusTooManyRequests},
		{"validation", NewValidationError(map[string]string{"essay": "too short"}), http.StatusUnprocessableEntity},
		{"partial", &PartialFailureError{Operation: "accept", Err: upstream}, http.StatusInternalServerError},
		{"app error code", New(http.StatusTeapot, "teapot", nil), http.StatusTeapot},
		{"unknown", upstream, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapErrorToStatus(tt.err); got != tt.want {
				t.Fatalf("MapErrorToStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPartialFailureErrorUnwrap(t *testing.T) {
	cause := errors.New("profile row locked")
	err := fmt.Errorf("advance: %w", &PartialFailureError{
		Operation: "accept application",
		Completed: "status set to accepted",
		Failed:    "profile was not promoted",
		Err:       cause,
	})

	if !errors.Is(err, ErrPartialFailure) {
		t.Fatal("expected errors.Is(err, ErrPartialFailure)")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected underlying cause to be preserved")
	}
	msg := err.Error()
	if !strings.Contains(msg, "status set to accepted") || !strings.Contains(msg, "profile was not promoted") {
		t.Fatalf("message should name both facts, got %q", msg)
	}
}

func TestValidationErrorIsInvalidInput(t *testing.T) {
	err := NewValidationError(map[string]string{"b": "second", "a": "first"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatal("validation error should unwrap to ErrInvalidInput")
	}
	if got := err.Error(); got != "validation failed: a: first; b: second" {
		t.Fatalf("unexpected message %q", got)
	}
}
