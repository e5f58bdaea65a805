package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is a task's lifecycle state. Only pending and processing tasks
// are picked up again on startup.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task types. They match the event types that create them.
const (
	// TaskTypeStudyMark records the outcome of a single study mark.
	TaskTypeStudyMark = "study_mark"

	// TaskTypeEssayGrading grades an uploaded essay.
	TaskTypeEssayGrading = "essay_grading"
)

// Task is one unit of background work. Payload is the JSON a Registry
// builder needs to rebuild the task after a restart.
type Task interface {
	ID() uuid.UUID
	Type() string
	Payload() []byte
	Status() TaskStatus
	Execute(ctx context.Context) error
}

// Keyed is implemented by tasks that must run one at a time, in submission
// order, with other tasks sharing the same key.
type Keyed interface {
	OrderingKey() string
}

// Record is a task as persisted by a TaskStore. The runner turns records
// back into executable tasks through a Registry.
type Record struct {
	ID        uuid.UUID
	Type      string
	Payload   []byte
	Status    TaskStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskStore persists tasks so unfinished work survives a restart.
type TaskStore interface {
	SaveTask(ctx context.Context, task Task) error
	// UpdateTaskStatus stores errorMsg; an empty one clears any earlier error.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
	// GetPendingTasks returns pending tasks, oldest first.
	GetPendingTasks(ctx context.Context) ([]Record, error)

	// GetProcessingTasks retrieves tasks with "processing" status.
	// A non-zero olderThan limits the result to tasks whose last update
	// is at least that old.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error)

	// WithTx returns a TaskStore bound to the caller's transaction.
	WithTx(tx *sql.Tx) TaskStore
}
