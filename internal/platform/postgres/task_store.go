package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/store"
	"github.com/phrazzld/cramdeck/internal/task"
)

// PostgresTaskStore implements task.TaskStore so queued background work
// survives a restart.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a task store. It panics on a nil db.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{db: db, logger: logger.With(slog.String("component", "task_store"))}
}

var _ task.TaskStore = (*PostgresTaskStore)(nil)

// SaveTask implements task.TaskStore.SaveTask.
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID(), t.Type(), t.Payload(), string(t.Status()), now, now)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save task",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to save task: %w", MapError(err))
	}
	return nil
}

// UpdateTaskStatus implements task.TaskStore.UpdateTaskStatus. An unknown
// id is not an error.
func (s *PostgresTaskStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status task.TaskStatus, errMsg string) error {
	var msg sql.NullString
	if errMsg != "" {
		msg = sql.NullString{String: errMsg, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4
	`, string(status), msg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", MapError(err))
	}
	return nil
}

// GetPendingTasks implements task.TaskStore.GetPendingTasks.
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]task.Record, error) {
	return s.byStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks implements task.TaskStore.GetProcessingTasks.
func (s *PostgresTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Record, error) {
	return s.byStatus(ctx, task.TaskStatusProcessing, olderThan)
}

func (s *PostgresTaskStore) byStatus(ctx context.Context, status task.TaskStatus, olderThan time.Duration) ([]task.Record, error) {
	// A zero cutoff in the future matches every row.
	cutoff := time.Now().UTC().Add(time.Minute)
	if olderThan > 0 {
		cutoff = time.Now().UTC().Add(-olderThan)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM tasks
		WHERE status = $1 AND updated_at < $2
		ORDER BY created_at ASC
	`, string(status), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks by status: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []task.Record
	for rows.Next() {
		var (
			r      task.Record
			st     string
			errMsg sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Type, &r.Payload, &st, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		r.Status = task.TaskStatus(st)
		r.Error = errMsg.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return records, nil
}

// WithTx implements task.TaskStore.WithTx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}
