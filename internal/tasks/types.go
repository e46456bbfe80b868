package tasks

import (
	"errors"
	"fmt"
)

var ErrTaskNotFound = errors.New("task not found")

// Task is the only persisted entity.
type Task struct {
	ID   int64
	Text string
}

// ValidationError reports a malformed or missing request input.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func notFound(id int64) error {
	return fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
}
