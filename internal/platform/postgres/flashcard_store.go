package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/store"
)

// PostgresFlashcardStore implements store.FlashcardStore.
type PostgresFlashcardStore struct {
	db     store.DBTX
	caps   store.CapabilityProvider
	logger *slog.Logger
}

// NewPostgresFlashcardStore creates a flashcard store. It panics on a nil db or caps.
func NewPostgresFlashcardStore(db store.DBTX, caps store.CapabilityProvider, logger *slog.Logger) *PostgresFlashcardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if caps == nil {
		panic("capabilities cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFlashcardStore{
		db:     db,
		caps:   caps,
		logger: logger.With(slog.String("component", "flashcard_store")),
	}
}

var _ store.FlashcardStore = (*PostgresFlashcardStore)(nil)

// List implements store.FlashcardStore.List.
func (s *PostgresFlashcardStore) List(ctx context.Context, filter store.FlashcardFilter) ([]domain.Flashcard, error) {
	var (
		conds []string
		args  []any
	)
	if filter.SubjectID != uuid.Nil {
		args = append(args, filter.SubjectID)
		conds = append(conds, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if filter.SubtopicID != uuid.Nil {
		args = append(args, filter.SubtopicID)
		conds = append(conds, fmt.Sprintf("subtopic_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	cards, err := s.query(ctx, where, args...)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(cards, domain.CompareFlashcards)
	return cards, nil
}

func (s *PostgresFlashcardStore) query(ctx context.Context, where string, args ...any) ([]domain.Flashcard, error) {
	caps, err := s.caps.Capabilities(ctx)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT id, front_text, back_text, subject_id, subtopic_id, %s, created_at
		FROM flashcards %s`, displayOrderColumn(caps.DisplayOrder), where)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query flashcards",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var cards []domain.Flashcard
	for rows.Next() {
		var (
			c       domain.Flashcard
			order   sql.NullInt64
			created sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.Front, &c.Back, &c.SubjectID, &c.SubtopicID, &order, &created); err != nil {
			return nil, fmt.Errorf("failed to scan flashcard: %w", err)
		}
		c.DisplayOrder = scanDisplayOrder(order)
		if created.Valid {
			c.CreatedAt = created.Time
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return cards, nil
}

// GetByID implements store.FlashcardStore.GetByID.
func (s *PostgresFlashcardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error) {
	cards, err := s.query(ctx, "WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, store.ErrFlashcardNotFound
	}
	return &cards[0], nil
}

// Create implements store.FlashcardStore.Create.
func (s *PostgresFlashcardStore) Create(ctx context.Context, card *domain.Flashcard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		return err
	}
	caps, err := s.caps.Capabilities(ctx)
	if err != nil {
		return err
	}

	if caps.DisplayOrder {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO flashcards (id, front_text, back_text, subject_id, subtopic_id, display_order, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, card.ID, card.Front, card.Back, card.SubjectID, card.SubtopicID,
			displayOrderValue(card.DisplayOrder), card.CreatedAt)
	} else {
		card.DisplayOrder = domain.Unordered()
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO flashcards (id, front_text, back_text, subject_id, subtopic_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, card.ID, card.Front, card.Back, card.SubjectID, card.SubtopicID, card.CreatedAt)
	}
	if err != nil {
		log.Error("failed to create flashcard", slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Debug("flashcard created", slog.String("card_id", card.ID.String()))
	return nil
}

// Update implements store.FlashcardStore.Update.
func (s *PostgresFlashcardStore) Update(ctx context.Context, card *domain.Flashcard) error {
	card.Front = strings.TrimSpace(card.Front)
	card.Back = strings.TrimSpace(card.Back)
	if err := card.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE flashcards
		SET front_text = $1, back_text = $2, subject_id = $3, subtopic_id = $4
		WHERE id = $5
	`, card.Front, card.Back, card.SubjectID, card.SubtopicID, card.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update flashcard",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrFlashcardNotFound)
}

// SetDisplayOrder implements store.FlashcardStore.SetDisplayOrder.
func (s *PostgresFlashcardStore) SetDisplayOrder(ctx context.Context, id uuid.UUID, order int) error {
	caps, err := s.caps.Capabilities(ctx)
	if err != nil {
		return err
	}
	if !caps.DisplayOrder {
		return store.ErrDisplayOrderUnsupported
	}

	result, err := s.db.ExecContext(ctx, `UPDATE flashcards SET display_order = $1 WHERE id = $2`, order, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrFlashcardNotFound)
}

// Delete implements store.FlashcardStore.Delete.
func (s *PostgresFlashcardStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM flashcards WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrFlashcardNotFound)
}

// WithTx implements store.FlashcardStore.WithTx.
func (s *PostgresFlashcardStore) WithTx(tx *sql.Tx) store.FlashcardStore {
	return &PostgresFlashcardStore{db: tx, caps: s.caps, logger: s.logger}
}
