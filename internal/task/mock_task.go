package task

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockTaskType is the type used by MockTask.
const MockTaskType = "mock_task"

// MockTask is a Task whose behavior is set per test.
type MockTask struct {
	TaskID      uuid.UUID
	TaskType    string
	TaskPayload []byte
	ExecuteFn   func(ctx context.Context) error

	mu         sync.Mutex
	taskStatus TaskStatus
}

// NewMockTask creates a pending MockTask that succeeds.
func NewMockTask(id uuid.UUID, taskType string, payload []byte) *MockTask {
	return &MockTask{
		TaskID:      id,
		TaskType:    taskType,
		TaskPayload: payload,
		taskStatus:  TaskStatusPending,
		ExecuteFn:   func(ctx context.Context) error { return nil },
	}
}

func (t *MockTask) ID() uuid.UUID   { return t.TaskID }
func (t *MockTask) Type() string    { return t.TaskType }
func (t *MockTask) Payload() []byte { return t.TaskPayload }

func (t *MockTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.taskStatus
}

func (t *MockTask) Execute(ctx context.Context) error {
	err := t.ExecuteFn(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.taskStatus = TaskStatusFailed
	} else {
		t.taskStatus = TaskStatusCompleted
	}
	return err
}

// MockRegistry returns a registry that rebuilds MockTasks from tasks.
// Unknown ids rebuild as fresh MockTasks that succeed.
func MockRegistry(tasks map[uuid.UUID]*MockTask) *Registry {
	r := NewRegistry()
	r.Register(MockTaskType, func(id uuid.UUID, payload []byte) (Task, error) {
		if t, ok := tasks[id]; ok {
			return t, nil
		}
		return NewMockTask(id, MockTaskType, payload), nil
	})
	return r
}
