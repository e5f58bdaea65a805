package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
)

// MasteryStore persists per-user card mastery.
type MasteryStore interface {
	// Record applies one mark atomically and returns the updated row.
	Record(ctx context.Context, userID, cardID uuid.UUID, correct bool, at time.Time) (*domain.CardMastery, error)
	// ListByUser returns the user's records keyed by card id.
	ListByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]*domain.CardMastery, error)
}
