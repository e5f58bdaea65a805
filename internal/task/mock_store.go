package task

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockTaskStore is an in-memory TaskStore. SaveFn and UpdateStatusFn may be
// replaced to inject failures.
type MockTaskStore struct {
	mutex   sync.RWMutex
	records map[uuid.UUID]Record

	SaveFn         func(ctx context.Context, task Task) error
	UpdateStatusFn func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
}

// NewMockTaskStore creates an empty MockTaskStore.
func NewMockTaskStore() *MockTaskStore {
	s := &MockTaskStore{records: make(map[uuid.UUID]Record)}
	s.SaveFn = s.save
	s.UpdateStatusFn = s.updateStatus
	return s
}

func (s *MockTaskStore) save(_ context.Context, task Task) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	now := time.Now()
	s.records[task.ID()] = Record{
		ID:        task.ID(),
		Type:      task.Type(),
		Payload:   task.Payload(),
		Status:    task.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *MockTaskStore) updateStatus(_ context.Context, id uuid.UUID, status TaskStatus, errorMsg string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	rec.Status = status
	rec.Error = errorMsg
	rec.UpdatedAt = time.Now()
	s.records[id] = rec
	return nil
}

// Put stores a record as is, for seeding recovery tests.
func (s *MockTaskStore) Put(rec Record) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.records[rec.ID] = rec
}

// Get returns the stored record for id.
func (s *MockTaskStore) Get(id uuid.UUID) (Record, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// SaveTask implements TaskStore.
func (s *MockTaskStore) SaveTask(ctx context.Context, task Task) error {
	return s.SaveFn(ctx, task)
}

// UpdateTaskStatus implements TaskStore.
func (s *MockTaskStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status TaskStatus, errorMsg string) error {
	return s.UpdateStatusFn(ctx, id, status, errorMsg)
}

// GetPendingTasks implements TaskStore.
func (s *MockTaskStore) GetPendingTasks(_ context.Context) ([]Record, error) {
	return s.filter(TaskStatusPending, 0), nil
}

// GetProcessingTasks implements TaskStore.
func (s *MockTaskStore) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]Record, error) {
	return s.filter(TaskStatusProcessing, olderThan), nil
}

func (s *MockTaskStore) filter(status TaskStatus, olderThan time.Duration) []Record {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	now := time.Now()
	var out []Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan == 0 || now.Sub(rec.UpdatedAt) > olderThan {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// WithTx returns the same store.
func (s *MockTaskStore) WithTx(*sql.Tx) TaskStore {
	return s
}
