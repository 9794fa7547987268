package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get* lookups. Find* lookups return a nil record
// instead.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found with ID: %s", e.Entity, e.ID)
}

// IsNotFound reports whether err wraps an *ErrNotFound
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// ValidationError represents an error that occurs due to invalid input or parameters
type ValidationError struct {
	Message string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a new validation error with the given message
func NewValidationError(message string) error {
	return ValidationError{
		Message: message,
	}
}

// IsValidationError reports whether err wraps a ValidationError
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// ErrInvalidTransition is returned when a status change is not allowed by a
// state machine.
type ErrInvalidTransition struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("%s %s cannot transition from %s to %s", e.Entity, e.ID, e.From, e.To)
}

// ErrWinnerAlreadySet guards the A/B winner, which is write-once.
var ErrWinnerAlreadySet = errors.New("ab test winner already decided")
