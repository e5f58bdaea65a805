package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
)

// EssayStore persists essay uploads and their grading state.
type EssayStore interface {
	Create(ctx context.Context, essay *domain.Essay) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Essay, error)
	// ListByUser returns the user's essays, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Essay, error)
	// UpdateStatus writes status, feedback and error.
	UpdateStatus(ctx context.Context, essay *domain.Essay) error
}
