package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Sift error code.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION" // 409
	ErrExhausted           ErrorCode = "EXHAUSTED"            // 409
	ErrValidationFailed    ErrorCode = "VALIDATION_FAILED"    // 422
	ErrReviewInterrupted   ErrorCode = "REVIEW_INTERRUPTED"   // 499
	ErrCancelled           ErrorCode = "CANCELLED"            // 499
	ErrFileNotFound        ErrorCode = "FILE_NOT_FOUND"       // 404
	ErrInternal            ErrorCode = "INTERNAL"             // 500
	ErrProposerFailed      ErrorCode = "PROPOSER_FAILED"      // 502
	ErrApproverFailed      ErrorCode = "APPROVER_FAILED"      // 502
	ErrStoreUnavailable    ErrorCode = "STORE_UNAVAILABLE"    // 503
)

// SiftError represents a structured error with code, status, and details.
type SiftError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is the wrapped implementation error. It is reachable through
	// Unwrap but never rendered on a user-facing surface.
	cause error
}

// Error implements the error interface.
func (e *SiftError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *SiftError) Unwrap() error {
	return e.cause
}

// Transient reports whether retrying the whole item later may succeed.
func (e *SiftError) Transient() bool {
	switch e.Code {
	case ErrProposerFailed, ErrApproverFailed, ErrStoreUnavailable, ErrReviewInterrupted:
		return true
	}
	return false
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SiftError {
	return &SiftError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing record or inbox item.
func NewNotFound(kind, id string) *SiftError {
	return &SiftError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewConstraintViolation creates a 409 error for a violated storage rule.
func NewConstraintViolation(msg string, details map[string]any) *SiftError {
	return &SiftError{
		Code:    ErrConstraintViolation,
		Status:  409,
		Message: msg,
		Details: details,
	}
}

// NewDuplicateInformation creates a 409 error for an Information whose
// content already exists.
func NewDuplicateInformation(content string) *SiftError {
	return NewConstraintViolation(
		fmt.Sprintf("information already exists: %q", content),
		map[string]any{"content": content},
	)
}

// NewPlanTooSmall creates a 422 error for a plan with fewer than two tasks.
func NewPlanTooSmall(min, actual int) *SiftError {
	return &SiftError{
		Code:    ErrValidationFailed,
		Status:  422,
		Message: fmt.Sprintf("a plan needs at least %d distinct tasks, got %d", min, actual),
		Details: map[string]any{"min_tasks": min, "actual_tasks": actual},
	}
}

// NewValidationFailed creates a 422 error for structurally invalid input.
func NewValidationFailed(msg string) *SiftError {
	return &SiftError{
		Code:    ErrValidationFailed,
		Status:  422,
		Message: msg,
	}
}

// NewProposerFailed wraps a failed Proposer call.
func NewProposerFailed(err error) *SiftError {
	return &SiftError{
		Code:    ErrProposerFailed,
		Status:  502,
		Message: "proposer call failed: " + reason(err),
		cause:   err,
	}
}

// NewApproverFailed wraps a failed Approver call.
func NewApproverFailed(err error) *SiftError {
	return &SiftError{
		Code:    ErrApproverFailed,
		Status:  502,
		Message: "approver call failed: " + reason(err),
		cause:   err,
	}
}

// NewReviewInterrupted wraps a reviewer transport failure (closed input,
// cancelled context).
func NewReviewInterrupted(err error) *SiftError {
	return &SiftError{
		Code:    ErrReviewInterrupted,
		Status:  499,
		Message: "review interrupted: " + reason(err),
		cause:   err,
	}
}

// NewCancelled creates a 499 error for an operation stopped by its context.
func NewCancelled(operation string) *SiftError {
	return &SiftError{
		Code:    ErrCancelled,
		Status:  499,
		Message: operation + " cancelled",
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *SiftError {
	return &SiftError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: "file not found: " + path,
		Details: map[string]any{"path": path},
	}
}

// NewExhausted reports a review loop that hit its iteration cap.
func NewExhausted(iterations int) *SiftError {
	return &SiftError{
		Code:    ErrExhausted,
		Status:  409,
		Message: fmt.Sprintf("no approval after %d iterations", iterations),
		Details: map[string]any{"iterations": iterations},
	}
}

// NewStoreUnavailable wraps a storage failure that prevents the run.
func NewStoreUnavailable(err error) *SiftError {
	return &SiftError{
		Code:    ErrStoreUnavailable,
		Status:  503,
		Message: "store unavailable",
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SiftError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SiftError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a SiftError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SiftError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As returns the SiftError in err's chain, if any.
func As(err error) (*SiftError, bool) {
	var sErr *SiftError
	if stderrors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}

func reason(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
