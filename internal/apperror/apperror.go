package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Vote and case conflicts. Each one wraps ErrConflict so callers can match
// either the specific reason or the category.
var (
	ErrAlreadyLiked   = fmt.Errorf("%w: already liked", ErrConflict)
	ErrNotYetLiked    = fmt.Errorf("%w: not liked yet", ErrConflict)
	ErrOpenCaseExists = fmt.Errorf("%w: open case exists", ErrConflict)
)

type AppError struct {
	Err     error  // category sentinel
	Message string // human-readable message
	Field   string // optional: offending field
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func Validation(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Conflict wraps one of the conflict sentinels with a message for the client.
func Conflict(reason error, message string) *AppError {
	if reason == nil {
		reason = ErrConflict
	}
	return &AppError{
		Err:     reason,
		Message: message,
	}
}
