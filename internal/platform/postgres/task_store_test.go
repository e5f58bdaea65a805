package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStoreSave(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	mt := task.NewMockTask(uuid.New(), task.TaskTypeStudyMark, []byte(`{"correct":true}`))

	mock.ExpectExec(q("INSERT INTO tasks")).
		WithArgs(mt.ID(), task.TaskTypeStudyMark, []byte(`{"correct":true}`), "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO tasks")).WillReturnError(errors.New("connection reset"))

	s := NewPostgresTaskStore(db, nil)
	require.NoError(t, s.SaveTask(context.Background(), mt))

	err := s.SaveTask(context.Background(), mt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save task")
}

func TestTaskStoreUpdateStatus(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec(q("UPDATE tasks SET status")).
		WithArgs("failed", "grader timed out", sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE tasks SET status")).
		WithArgs("completed", nil, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewPostgresTaskStore(db, nil)
	require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusFailed, "grader timed out"))
	assert.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusCompleted, ""),
		"an unknown id is not an error")
}

func TestTaskStoreByStatus(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	first, second := uuid.New(), uuid.New()
	cols := []string{"id", "type", "payload", "status", "error_message", "created_at", "updated_at"}

	mock.ExpectQuery(q("FROM tasks")).
		WithArgs("pending", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(first.String(), task.TaskTypeStudyMark, []byte(`{}`), "pending", nil, created, created).
			AddRow(second.String(), task.TaskTypeEssayGrading, []byte(`{}`), "pending", "earlier failure", created, created))
	mock.ExpectQuery(q("FROM tasks")).
		WithArgs("processing", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols))

	s := NewPostgresTaskStore(db, nil)
	pending, err := s.GetPendingTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first, pending[0].ID)
	assert.Equal(t, task.TaskStatusPending, pending[0].Status)
	assert.Empty(t, pending[0].Error)
	assert.Equal(t, "earlier failure", pending[1].Error)

	stuck, err := s.GetProcessingTasks(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, stuck)
}
