package domain

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports an absent resource. It is also used when a resource
// exists but belongs to someone else.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ConflictError reports a business rule violation.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// FatalProcessingError marks an event that cannot be processed yet and must
// be redelivered.
type FatalProcessingError struct {
	Reason string
}

func (e *FatalProcessingError) Error() string { return "fatal processing: " + e.Reason }

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func NotFoundf(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsFatal(err error) bool {
	var target *FatalProcessingError
	return errors.As(err, &target)
}
