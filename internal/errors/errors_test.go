package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Is(t *testing.T) {
	cause := errors.New("lock wait cancelled")
	wrapped := fmt.Errorf("run: %w", Wrap(ErrPassAborted, cause))

	if !errors.Is(wrapped, ErrPassAborted) {
		t.Error("expected wrapped error to match its sentinel")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected wrapped error to match its cause")
	}
	if errors.Is(wrapped, ErrBudgetNotFound) {
		t.Error("expected no match against a different code")
	}
	if !errors.Is(WithMessage(ErrInvalidInput, "amount: bad"), ErrInvalidInput) {
		t.Error("expected re-worded error to match its sentinel")
	}
}

func TestWrap_KeepsPublicFields(t *testing.T) {
	err := Wrap(ErrInternalServer, errors.New("pq: connection refused"))

	if err.Error() != ErrInternalServer.Message {
		t.Errorf("expected public message, got %q", err.Error())
	}
	if err.StatusCode != ErrInternalServer.StatusCode || err.Code != "INTERNAL_ERROR" {
		t.Errorf("unexpected status/code %d/%s", err.StatusCode, err.Code)
	}
	if ErrInternalServer.Internal != nil {
		t.Error("Wrap must not mutate the sentinel")
	}
}
