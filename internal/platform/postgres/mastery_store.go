package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/store"
)

// PostgresMasteryStore implements store.MasteryStore.
type PostgresMasteryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMasteryStore creates a mastery store. It panics on a nil db.
func NewPostgresMasteryStore(db store.DBTX, logger *slog.Logger) *PostgresMasteryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresMasteryStore{db: db, logger: logger.With(slog.String("component", "mastery_store"))}
}

var _ store.MasteryStore = (*PostgresMasteryStore)(nil)

// The upsert mirrors domain.CardMastery.Record so concurrent marks for the
// same card cannot lose an increment.
const recordMasteryQuery = `
	INSERT INTO card_mastery AS m (user_id, card_id, consecutive_correct, times_correct, times_wrong, last_studied_at)
	VALUES ($1, $2,
		CASE WHEN $3::boolean THEN 1 ELSE 0 END,
		CASE WHEN $3::boolean THEN 1 ELSE 0 END,
		CASE WHEN $3::boolean THEN 0 ELSE 1 END,
		$4)
	ON CONFLICT (user_id, card_id) DO UPDATE SET
		consecutive_correct = CASE WHEN $3::boolean THEN m.consecutive_correct + 1 ELSE 0 END,
		times_correct = m.times_correct + CASE WHEN $3::boolean THEN 1 ELSE 0 END,
		times_wrong = m.times_wrong + CASE WHEN $3::boolean THEN 0 ELSE 1 END,
		last_studied_at = GREATEST(m.last_studied_at, $4)
	RETURNING consecutive_correct, times_correct, times_wrong, last_studied_at
`

// Record implements store.MasteryStore.Record.
func (s *PostgresMasteryStore) Record(
	ctx context.Context,
	userID, cardID uuid.UUID,
	correct bool,
	at time.Time,
) (*domain.CardMastery, error) {
	m := domain.NewCardMastery(userID, cardID)
	err := s.db.QueryRowContext(ctx, recordMasteryQuery, userID, cardID, correct, at.UTC()).
		Scan(&m.ConsecutiveCorrect, &m.TimesCorrect, &m.TimesWrong, &m.LastStudiedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to record mastery",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("card_id", cardID.String()))
		if IsForeignKeyViolation(err) {
			return nil, store.ErrFlashcardNotFound
		}
		return nil, MapError(err)
	}
	return m, nil
}

// ListByUser implements store.MasteryStore.ListByUser.
func (s *PostgresMasteryStore) ListByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]*domain.CardMastery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT card_id, consecutive_correct, times_correct, times_wrong, last_studied_at
		FROM card_mastery
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[uuid.UUID]*domain.CardMastery)
	for rows.Next() {
		m := &domain.CardMastery{UserID: userID}
		if err := rows.Scan(&m.CardID, &m.ConsecutiveCorrect, &m.TimesCorrect, &m.TimesWrong, &m.LastStudiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mastery: %w", err)
		}
		out[m.CardID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}
