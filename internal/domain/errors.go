package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// It is usually carried inside a *ValidationError naming the field.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidTransition is returned when a status change is not an edge
	// of the task lifecycle graph.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError describes a single invalid field.
// errors.Is(err, ErrValidation) holds for every ValidationError.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for field. err may be nil.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports ErrValidation as a match so callers can classify any
// ValidationError without knowing its cause.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TransitionError reports a rejected status change together with the
// statuses that would have been accepted from the current one.
type TransitionError struct {
	TaskID  uuid.UUID
	From    Status
	To      Status
	Allowed []Status
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("%v: task %s cannot move from %s to %s (allowed: [%s])",
		ErrInvalidTransition, e.TaskID, e.From, e.To, strings.Join(allowed, ", "))
}

// Unwrap lets errors.Is(err, ErrInvalidTransition) match.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
