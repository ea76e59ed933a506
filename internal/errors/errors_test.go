package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestSiftError_Error(t *testing.T) {
	err := &SiftError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "idea not found",
	}

	expected := "NOT_FOUND: idea not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("raw_text is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "raw_text is required" {
		t.Errorf("Message = %q, want %q", err.Message, "raw_text is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("task", "01ABC")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["id"] != "01ABC" || err.Details["kind"] != "task" {
		t.Errorf("Details = %v, want kind=task id=01ABC", err.Details)
	}
}

func TestNewDuplicateInformation(t *testing.T) {
	err := NewDuplicateInformation("Dia 25/12/2025 será feriado")

	if err.Code != ErrConstraintViolation {
		t.Errorf("Code = %q, want %q", err.Code, ErrConstraintViolation)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
	if err.Details["content"] != "Dia 25/12/2025 será feriado" {
		t.Errorf("Details[content] = %v", err.Details["content"])
	}
}

func TestNewPlanTooSmall(t *testing.T) {
	err := NewPlanTooSmall(2, 1)

	if err.Code != ErrValidationFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidationFailed)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if err.Details["min_tasks"] != 2 || err.Details["actual_tasks"] != 1 {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestNewProposerFailed_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("timeout")
	err := NewProposerFailed(cause)

	if err.Code != ErrProposerFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrProposerFailed)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if !err.Transient() {
		t.Error("Transient() = false, want true")
	}
}

func TestNewExhausted(t *testing.T) {
	err := NewExhausted(3)

	if err.Code != ErrExhausted {
		t.Errorf("Code = %q, want %q", err.Code, ErrExhausted)
	}
	if err.Transient() {
		t.Error("Transient() = true, want false")
	}
	if err.Details["iterations"] != 3 {
		t.Errorf("Details[iterations] = %v, want 3", err.Details["iterations"])
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)

	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("idea", "x"), ErrNotFound, true},
		{"different code", NewNotFound("idea", "x"), ErrInternal, false},
		{"wrapped", fmt.Errorf("context: %w", NewStoreUnavailable(nil)), ErrStoreUnavailable, true},
		{"plain error", fmt.Errorf("boom"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("save: %w", NewDuplicateInformation("x"))

	sErr, ok := As(wrapped)
	if !ok {
		t.Fatal("As() ok = false, want true")
	}
	if sErr.Code != ErrConstraintViolation {
		t.Errorf("Code = %q, want %q", sErr.Code, ErrConstraintViolation)
	}

	if _, ok := As(fmt.Errorf("plain")); ok {
		t.Error("As(plain) ok = true, want false")
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("export")

	if err.Code != ErrCancelled || err.Status != 499 {
		t.Errorf("got %s/%d, want CANCELLED/499", err.Code, err.Status)
	}
	if err.Message != "export cancelled" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/notes.txt")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileNotFound)
	}
	if err.Details["path"] != "/tmp/notes.txt" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
}
