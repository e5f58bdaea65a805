package mocks

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/store"
)

// MockEssayStore implements store.EssayStore in memory.
type MockEssayStore struct {
	mu     sync.Mutex
	Essays map[uuid.UUID]domain.Essay

	CreateFn       func(ctx context.Context, essay *domain.Essay) error
	UpdateStatusFn func(ctx context.Context, essay *domain.Essay) error
}

func NewMockEssayStore(essays ...domain.Essay) *MockEssayStore {
	m := &MockEssayStore{Essays: make(map[uuid.UUID]domain.Essay)}
	for _, e := range essays {
		m.Essays[e.ID] = e
	}
	return m
}

func (m *MockEssayStore) Create(ctx context.Context, essay *domain.Essay) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, essay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Essays[essay.ID] = *essay
	return nil
}

func (m *MockEssayStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Essay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Essays[id]
	if !ok {
		return nil, store.ErrEssayNotFound
	}
	return &e, nil
}

func (m *MockEssayStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Essay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Essay
	for _, e := range m.Essays {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b domain.Essay) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *MockEssayStore) UpdateStatus(ctx context.Context, essay *domain.Essay) error {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, essay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Essays[essay.ID]; !ok {
		return store.ErrEssayNotFound
	}
	m.Essays[essay.ID] = *essay
	return nil
}

var _ store.EssayStore = (*MockEssayStore)(nil)
