package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// MissedCardTracker keeps, per user, the cards last marked wrong. Members
// are scored by the time they were missed so listing is oldest miss first.
type MissedCardTracker struct {
	rdb    goredis.Cmdable
	now    func() time.Time
	logger *slog.Logger
}

// NewMissedCardTracker creates a tracker on rdb.
func NewMissedCardTracker(rdb goredis.Cmdable, logger *slog.Logger) *MissedCardTracker {
	if rdb == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MissedCardTracker{rdb: rdb, now: time.Now, logger: logger.With("component", "missed_card_tracker")}
}

// Add records cardID as missed. Missing it again keeps the original time.
func (t *MissedCardTracker) Add(ctx context.Context, userID, cardID uuid.UUID) error {
	err := t.rdb.ZAddNX(ctx, missedKey(userID.String()), goredis.Z{
		Score:  float64(t.now().UnixMilli()),
		Member: cardID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("add missed card: %w", err)
	}
	return nil
}

// Remove drops cardID from the user's missed set.
func (t *MissedCardTracker) Remove(ctx context.Context, userID, cardID uuid.UUID) error {
	if err := t.rdb.ZRem(ctx, missedKey(userID.String()), cardID.String()).Err(); err != nil {
		return fmt.Errorf("remove missed card: %w", err)
	}
	return nil
}

// List returns the user's missed card ids, oldest miss first. Members that
// are not valid ids are skipped.
func (t *MissedCardTracker) List(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	members, err := t.rdb.ZRange(ctx, missedKey(userID.String()), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list missed cards: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			t.logger.Warn("skipping malformed missed card member", "user_id", userID, "member", m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Clear forgets all of the user's missed cards.
func (t *MissedCardTracker) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := t.rdb.Del(ctx, missedKey(userID.String())).Err(); err != nil {
		return fmt.Errorf("clear missed cards: %w", err)
	}
	return nil
}
