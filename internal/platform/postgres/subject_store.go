package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/store"
)

// PostgresSubjectStore implements store.SubjectStore.
type PostgresSubjectStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSubjectStore creates a subject store. It panics on a nil db.
func NewPostgresSubjectStore(db store.DBTX, logger *slog.Logger) *PostgresSubjectStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSubjectStore{db: db, logger: logger.With(slog.String("component", "subject_store"))}
}

var _ store.SubjectStore = (*PostgresSubjectStore)(nil)

// List implements store.SubjectStore.List.
func (s *PostgresSubjectStore) List(ctx context.Context) ([]domain.Subject, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM subjects
		ORDER BY lower(name), id
	`)
	if err != nil {
		log.Error("failed to list subjects", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var subjects []domain.Subject
	for rows.Next() {
		var sub domain.Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return subjects, nil
}

// GetByID implements store.SubjectStore.GetByID.
func (s *PostgresSubjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	var sub domain.Subject
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM subjects WHERE id = $1
	`, id).Scan(&sub.ID, &sub.Name, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSubjectNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get subject",
			slog.String("error", err.Error()),
			slog.String("subject_id", id.String()))
		return nil, MapError(err)
	}
	return &sub, nil
}

// Create implements store.SubjectStore.Create.
func (s *PostgresSubjectStore) Create(ctx context.Context, subject *domain.Subject) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := subject.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subjects (id, name, created_at) VALUES ($1, $2, $3)
	`, subject.ID, subject.Name, subject.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrSubjectNameExists
		}
		log.Error("failed to create subject", slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Info("subject created", slog.String("subject_id", subject.ID.String()))
	return nil
}

// Rename implements store.SubjectStore.Rename.
func (s *PostgresSubjectStore) Rename(ctx context.Context, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewValidationError("name", "cannot be empty", domain.ErrEmptyName)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE subjects SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrSubjectNameExists
		}
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrSubjectNotFound)
}

// Delete implements store.SubjectStore.Delete.
func (s *PostgresSubjectStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrSubjectNotFound); err != nil {
		return err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("subject deleted", slog.String("subject_id", id.String()))
	return nil
}

// WithTx implements store.SubjectStore.WithTx.
func (s *PostgresSubjectStore) WithTx(tx *sql.Tx) store.SubjectStore {
	return &PostgresSubjectStore{db: tx, logger: s.logger}
}
