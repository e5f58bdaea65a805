package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Flashcard is a single front/back prompt filed under a subject and subtopic.
type Flashcard struct {
	ID           uuid.UUID    `json:"id"`
	Front        string       `json:"front_text"`
	Back         string       `json:"back_text"`
	SubjectID    uuid.UUID    `json:"subject_id"`
	SubtopicID   uuid.UUID    `json:"subtopic_id"`
	DisplayOrder DisplayOrder `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
}

// NewFlashcard creates a Flashcard with trimmed faces.
func NewFlashcard(subjectID, subtopicID uuid.UUID, front, back string) (*Flashcard, error) {
	c := &Flashcard{
		ID:         uuid.New(),
		Front:      strings.TrimSpace(front),
		Back:       strings.TrimSpace(back),
		SubjectID:  subjectID,
		SubtopicID: subtopicID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks if the Flashcard has valid data.
func (c *Flashcard) Validate() error {
	if c.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if c.SubjectID == uuid.Nil {
		return NewValidationError("subject_id", "cannot be empty", ErrInvalidID)
	}
	if c.SubtopicID == uuid.Nil {
		return NewValidationError("subtopic_id", "cannot be empty", ErrInvalidID)
	}
	if strings.TrimSpace(c.Front) == "" {
		return NewValidationError("front_text", "cannot be empty", ErrEmptyFront)
	}
	if strings.TrimSpace(c.Back) == "" {
		return NewValidationError("back_text", "cannot be empty", ErrEmptyBack)
	}
	return nil
}

// Matches reports whether query occurs in either face, ignoring case.
// A blank query matches every card.
func (c *Flashcard) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Front), q) ||
		strings.Contains(strings.ToLower(c.Back), q)
}
