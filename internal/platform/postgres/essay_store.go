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

// PostgresEssayStore implements store.EssayStore.
type PostgresEssayStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresEssayStore creates an essay store. It panics on a nil db.
func NewPostgresEssayStore(db store.DBTX, logger *slog.Logger) *PostgresEssayStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresEssayStore{db: db, logger: logger.With(slog.String("component", "essay_store"))}
}

var _ store.EssayStore = (*PostgresEssayStore)(nil)

const essayColumns = `id, user_id, filename, content_type, storage_path, size_bytes, status, feedback, error_message, created_at, updated_at`

func scanEssay(row interface{ Scan(...any) error }) (*domain.Essay, error) {
	var e domain.Essay
	var status string
	err := row.Scan(&e.ID, &e.UserID, &e.Filename, &e.ContentType, &e.StoragePath, &e.SizeBytes,
		&status, &e.Feedback, &e.Error, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = domain.EssayStatus(status)
	return &e, nil
}

// Create implements store.EssayStore.Create.
func (s *PostgresEssayStore) Create(ctx context.Context, essay *domain.Essay) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := essay.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO essays (`+essayColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, essay.ID, essay.UserID, essay.Filename, essay.ContentType, essay.StoragePath, essay.SizeBytes,
		string(essay.Status), essay.Feedback, essay.Error, essay.CreatedAt, essay.UpdatedAt)
	if err != nil {
		log.Error("failed to create essay", slog.String("error", err.Error()))
		if IsForeignKeyViolation(err) {
			return store.ErrUserNotFound
		}
		return MapError(err)
	}
	log.Info("essay stored", slog.String("essay_id", essay.ID.String()))
	return nil
}

// GetByID implements store.EssayStore.GetByID.
func (s *PostgresEssayStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Essay, error) {
	e, err := scanEssay(s.db.QueryRowContext(ctx, `SELECT `+essayColumns+` FROM essays WHERE id = $1`, id))
	if err != nil {
		return nil, errNoRowsToNotFound(err, store.ErrEssayNotFound)
	}
	return e, nil
}

// ListByUser implements store.EssayStore.ListByUser.
func (s *PostgresEssayStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Essay, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+essayColumns+` FROM essays WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var essays []domain.Essay
	for rows.Next() {
		e, err := scanEssay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan essay: %w", err)
		}
		essays = append(essays, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return essays, nil
}

// UpdateStatus implements store.EssayStore.UpdateStatus.
func (s *PostgresEssayStore) UpdateStatus(ctx context.Context, essay *domain.Essay) error {
	if err := essay.Validate(); err != nil {
		return err
	}
	if essay.UpdatedAt.IsZero() {
		essay.UpdatedAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE essays
		SET status = $1, feedback = $2, error_message = $3, updated_at = $4
		WHERE id = $5
	`, string(essay.Status), essay.Feedback, essay.Error, essay.UpdatedAt, essay.ID)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrEssayNotFound)
}
