package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Subject is a top-level grouping of study material, e.g. "Biology".
type Subject struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSubject creates a Subject with a trimmed name.
func NewSubject(name string) (*Subject, error) {
	s := &Subject{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks if the Subject has valid data.
func (s *Subject) Validate() error {
	if s.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("name", "cannot be empty", ErrEmptyName)
	}
	return nil
}

// Subtopic narrows a Subject, e.g. "Cell Division" under "Biology".
type Subtopic struct {
	ID           uuid.UUID    `json:"id"`
	SubjectID    uuid.UUID    `json:"subject_id"`
	Name         string       `json:"name"`
	DisplayOrder DisplayOrder `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
}

// NewSubtopic creates a Subtopic under subjectID. The display order is
// assigned by the caller once sibling positions are known.
func NewSubtopic(subjectID uuid.UUID, name string) (*Subtopic, error) {
	s := &Subtopic{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks if the Subtopic has valid data.
func (s *Subtopic) Validate() error {
	if s.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if s.SubjectID == uuid.Nil {
		return NewValidationError("subject_id", "cannot be empty", ErrInvalidID)
	}
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("name", "cannot be empty", ErrEmptyName)
	}
	return nil
}
