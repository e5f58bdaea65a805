package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
)

// SubjectStore persists subjects.
type SubjectStore interface {
	// List returns every subject sorted by name.
	List(ctx context.Context) ([]domain.Subject, error)
	// GetByID returns ErrSubjectNotFound when id does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error)
	Create(ctx context.Context, subject *domain.Subject) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
	// Delete cascades to the subject's subtopics and flashcards.
	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(tx *sql.Tx) SubjectStore
}

// SubtopicStore persists subtopics.
type SubtopicStore interface {
	// ListBySubject returns the subject's subtopics sorted with domain.CompareSubtopics.
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.Subtopic, error)
	// ListAll returns every subtopic, unsorted.
	ListAll(ctx context.Context) ([]domain.Subtopic, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subtopic, error)
	// Create stores the subtopic. An Ordered display order is written only
	// when the schema supports it.
	Create(ctx context.Context, subtopic *domain.Subtopic) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
	// SetDisplayOrder returns ErrDisplayOrderUnsupported on an old schema.
	SetDisplayOrder(ctx context.Context, id uuid.UUID, order int) error
	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(tx *sql.Tx) SubtopicStore
}

// FlashcardFilter narrows FlashcardStore.List. Zero fields do not filter.
type FlashcardFilter struct {
	SubjectID  uuid.UUID
	SubtopicID uuid.UUID
}

// FlashcardStore persists flashcards.
type FlashcardStore interface {
	// List returns matching flashcards sorted with domain.CompareFlashcards.
	List(ctx context.Context, filter FlashcardFilter) ([]domain.Flashcard, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error)
	Create(ctx context.Context, card *domain.Flashcard) error
	// Update writes front, back, subject and subtopic.
	Update(ctx context.Context, card *domain.Flashcard) error
	// SetDisplayOrder returns ErrDisplayOrderUnsupported on an old schema.
	SetDisplayOrder(ctx context.Context, id uuid.UUID, order int) error
	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(tx *sql.Tx) FlashcardStore
}
