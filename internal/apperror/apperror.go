package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrRateLimited = errors.New("rate limited")
	ErrUpstream    = errors.New("upstream error")
)

type AppError struct {
	Err     error  // sentinel classifying the error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func RateLimited(message string) *AppError {
	return &AppError{
		Err:     ErrRateLimited,
		Message: message,
	}
}

// Upstream returns an AppError for a failed call to an external service
// (GitHub's REST API or its OAuth token endpoint).
func Upstream(format string, args ...any) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: fmt.Sprintf(format, args...),
	}
}

// Message extracts the human-readable message from err. Falls back to a
// generic message when err is not an *AppError, so internal error details are
// never shown to a visitor.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An error occurred"
}
