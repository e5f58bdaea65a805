package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyName is returned when a subject or subtopic name is blank after trimming.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrEmptyFront and ErrEmptyBack guard flashcard faces.
	ErrEmptyFront = errors.New("front text cannot be empty")
	ErrEmptyBack  = errors.New("back text cannot be empty")

	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d characters long", MaxPasswordLength)
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrUnauthorized is returned when no authenticated user is present.
	ErrUnauthorized = errors.New("unauthorized operation")

	// ErrForbidden is returned when the authenticated user lacks the admin role.
	ErrForbidden = errors.New("operation requires administrator access")
)

// ValidationError ties a failed check to the offending field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError builds a ValidationError; err is usually one of the
// sentinel errors above and defaults to ErrValidation.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap exposes the sentinel error. Is also matches ErrValidation so callers
// can treat every ValidationError uniformly.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
