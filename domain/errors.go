package domain

import "fmt"

// ValidationError reports bad or missing input. It is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "ValidationError: " + e.Reason
}

// NotFoundError reports an id that matches no record in its collection.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("NotFoundError: no record with id %q", e.ID)
}

// TransientError reports an infrastructure failure that callers may retry.
// The wrapped error, if any, carries the underlying cause.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return "TransientError: " + e.Cause.Error()
	}
	return "TransientError: backend unavailable"
}

func (e *TransientError) Unwrap() error { return e.Cause }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
