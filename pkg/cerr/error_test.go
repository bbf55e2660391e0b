package cerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := NewError(NotFound, "task not found", nil)
	if got, want := err.Error(), "[not_found] task not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	underlying := errors.New("boom")
	err = NewError(Internal, "server error", underlying)
	if got, want := err.Error(), "[internal] server error: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, underlying) {
		t.Error("expected Unwrap to expose the underlying error")
	}
}

func TestStackCapturedForErrorLevelCodes(t *testing.T) {
	if err := NewError(Internal, "server error", nil); err.Stack == "" {
		t.Error("expected stack for internal error")
	}
	if err := NewError(NotFound, "task not found", nil); err.Stack != "" {
		t.Error("expected no stack for not-found error")
	}
}

func TestIsCode(t *testing.T) {
	err := NewError(FailedPrecondition, "task is already archived", nil)
	if !IsCode(err, FailedPrecondition) {
		t.Error("IsCode should match the error's own code")
	}
	if IsCode(err, NotFound) {
		t.Error("IsCode should not match a different code")
	}
	wrapped := fmt.Errorf("while archiving: %w", err)
	if !IsCode(wrapped, FailedPrecondition) {
		t.Error("IsCode should see through wrapping")
	}
	if IsCode(errors.New("plain"), Internal) {
		t.Error("IsCode should reject non-cerr errors")
	}
}

func TestHTTPCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{InvalidArgument, http.StatusBadRequest},
		{NotFound, http.StatusNotFound},
		{AlreadyExists, http.StatusConflict},
		{PermissionDenied, http.StatusForbidden},
		{FailedPrecondition, http.StatusPreconditionFailed},
		{Unauthenticated, http.StatusUnauthorized},
		{Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.code.HTTPCode(); got != tt.want {
			t.Errorf("%s.HTTPCode() = %d, want %d", tt.code, got, tt.want)
		}
	}
}
