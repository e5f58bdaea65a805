package store

import (
	"errors"
	"fmt"
)

// Errors shared by every store implementation.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrDuplicate     = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrReferenced is returned when a row cannot be removed or linked because
	// of a foreign key, e.g. deleting a subject that still has subtopics.
	ErrReferenced = errors.New("entity is referenced by other records")

	// ErrDisplayOrderUnsupported is returned by ordering writes when the
	// schema has no display_order columns yet.
	ErrDisplayOrderUnsupported = errors.New("display order is not available; run the migration")

	ErrSubjectNotFound   = fmt.Errorf("%w: subject", ErrNotFound)
	ErrSubtopicNotFound  = fmt.Errorf("%w: subtopic", ErrNotFound)
	ErrFlashcardNotFound = fmt.Errorf("%w: flashcard", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("%w: user", ErrNotFound)
	ErrMasteryNotFound   = fmt.Errorf("%w: mastery", ErrNotFound)
	ErrEssayNotFound     = fmt.Errorf("%w: essay", ErrNotFound)

	ErrEmailExists       = fmt.Errorf("%w: email", ErrDuplicate)
	ErrSubjectNameExists = fmt.Errorf("%w: subject name", ErrDuplicate)
)

// IsNotFoundError reports whether err is any flavour of not-found.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is any flavour of duplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError adds the entity and operation to a lower-level failure.
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
