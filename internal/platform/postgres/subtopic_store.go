package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/store"
)

// PostgresSubtopicStore implements store.SubtopicStore. Whether
// display_order is read and written depends on caps.
type PostgresSubtopicStore struct {
	db     store.DBTX
	caps   store.CapabilityProvider
	logger *slog.Logger
}

// NewPostgresSubtopicStore creates a subtopic store. It panics on a nil db or caps.
func NewPostgresSubtopicStore(db store.DBTX, caps store.CapabilityProvider, logger *slog.Logger) *PostgresSubtopicStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if caps == nil {
		panic("capabilities cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSubtopicStore{
		db:     db,
		caps:   caps,
		logger: logger.With(slog.String("component", "subtopic_store")),
	}
}

var _ store.SubtopicStore = (*PostgresSubtopicStore)(nil)

func (s *PostgresSubtopicStore) displayOrderSupported(ctx context.Context) (bool, error) {
	caps, err := s.caps.Capabilities(ctx)
	if err != nil {
		return false, err
	}
	return caps.DisplayOrder, nil
}

func (s *PostgresSubtopicStore) query(ctx context.Context, where string, args ...any) ([]domain.Subtopic, error) {
	supported, err := s.displayOrderSupported(ctx)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT id, subject_id, name, %s, created_at FROM subtopics %s`,
		displayOrderColumn(supported), where)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query subtopics",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Subtopic
	for rows.Next() {
		var st domain.Subtopic
		var order sql.NullInt64
		if err := rows.Scan(&st.ID, &st.SubjectID, &st.Name, &order, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subtopic: %w", err)
		}
		st.DisplayOrder = scanDisplayOrder(order)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// ListBySubject implements store.SubtopicStore.ListBySubject.
func (s *PostgresSubtopicStore) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.Subtopic, error) {
	subtopics, err := s.query(ctx, "WHERE subject_id = $1", subjectID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(subtopics, domain.CompareSubtopics)
	return subtopics, nil
}

// ListAll implements store.SubtopicStore.ListAll.
func (s *PostgresSubtopicStore) ListAll(ctx context.Context) ([]domain.Subtopic, error) {
	return s.query(ctx, "")
}

// GetByID implements store.SubtopicStore.GetByID.
func (s *PostgresSubtopicStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subtopic, error) {
	subtopics, err := s.query(ctx, "WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(subtopics) == 0 {
		return nil, store.ErrSubtopicNotFound
	}
	return &subtopics[0], nil
}

// Create implements store.SubtopicStore.Create.
func (s *PostgresSubtopicStore) Create(ctx context.Context, subtopic *domain.Subtopic) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := subtopic.Validate(); err != nil {
		return err
	}
	supported, err := s.displayOrderSupported(ctx)
	if err != nil {
		return err
	}

	if supported {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO subtopics (id, subject_id, name, display_order, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, subtopic.ID, subtopic.SubjectID, subtopic.Name, displayOrderValue(subtopic.DisplayOrder), subtopic.CreatedAt)
	} else {
		subtopic.DisplayOrder = domain.Unordered()
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO subtopics (id, subject_id, name, created_at)
			VALUES ($1, $2, $3, $4)
		`, subtopic.ID, subtopic.SubjectID, subtopic.Name, subtopic.CreatedAt)
	}
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrSubjectNotFound
		}
		log.Error("failed to create subtopic", slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Info("subtopic created",
		slog.String("subtopic_id", subtopic.ID.String()),
		slog.String("subject_id", subtopic.SubjectID.String()))
	return nil
}

// Rename implements store.SubtopicStore.Rename.
func (s *PostgresSubtopicStore) Rename(ctx context.Context, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewValidationError("name", "cannot be empty", domain.ErrEmptyName)
	}
	result, err := s.db.ExecContext(ctx, `UPDATE subtopics SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrSubtopicNotFound)
}

// SetDisplayOrder implements store.SubtopicStore.SetDisplayOrder.
func (s *PostgresSubtopicStore) SetDisplayOrder(ctx context.Context, id uuid.UUID, order int) error {
	supported, err := s.displayOrderSupported(ctx)
	if err != nil {
		return err
	}
	if !supported {
		return store.ErrDisplayOrderUnsupported
	}

	result, err := s.db.ExecContext(ctx, `UPDATE subtopics SET display_order = $1 WHERE id = $2`, order, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrSubtopicNotFound)
}

// Delete implements store.SubtopicStore.Delete.
func (s *PostgresSubtopicStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM subtopics WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrSubtopicNotFound)
}

// WithTx implements store.SubtopicStore.WithTx.
func (s *PostgresSubtopicStore) WithTx(tx *sql.Tx) store.SubtopicStore {
	return &PostgresSubtopicStore{db: tx, caps: s.caps, logger: s.logger}
}

// errNoRowsToNotFound keeps sql.ErrNoRows from leaking past the store.
func errNoRowsToNotFound(err, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return MapError(err)
}
