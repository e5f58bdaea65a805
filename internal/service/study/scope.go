package study

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Mode selects which cards a session draws from.
type Mode string

const (
	ModeSubject  Mode = "subject"
	ModeSubtopic Mode = "subtopic"
	// ModeRandom draws a shuffled deck from every card, or from one subject
	// when SubjectID is set.
	ModeRandom Mode = "random"
	// ModeMissed studies the cards on the user's missed list.
	ModeMissed Mode = "missed"
)

var ErrInvalidScope = errors.New("invalid study scope")

// Scope is a deck selection.
type Scope struct {
	Mode       Mode      `json:"mode"`
	SubjectID  uuid.UUID `json:"subject_id,omitempty"`
	SubtopicID uuid.UUID `json:"subtopic_id,omitempty"`
}

// Validate checks the ids each mode requires.
func (s Scope) Validate() error {
	switch s.Mode {
	case ModeSubject:
		if s.SubjectID == uuid.Nil {
			return fmt.Errorf("%w: subject mode needs subject_id", ErrInvalidScope)
		}
	case ModeSubtopic:
		if s.SubtopicID == uuid.Nil {
			return fmt.Errorf("%w: subtopic mode needs subtopic_id", ErrInvalidScope)
		}
	case ModeRandom, ModeMissed:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidScope, s.Mode)
	}
	return nil
}
