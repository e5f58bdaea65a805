package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/store"
)

// MockMasteryStore implements store.MasteryStore in memory.
type MockMasteryStore struct {
	mu      sync.Mutex
	Records map[uuid.UUID]map[uuid.UUID]*domain.CardMastery

	RecordFn     func(ctx context.Context, userID, cardID uuid.UUID, correct bool, at time.Time) (*domain.CardMastery, error)
	ListByUserFn func(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]*domain.CardMastery, error)
}

func NewMockMasteryStore() *MockMasteryStore {
	return &MockMasteryStore{Records: make(map[uuid.UUID]map[uuid.UUID]*domain.CardMastery)}
}

func (m *MockMasteryStore) Record(ctx context.Context, userID, cardID uuid.UUID, correct bool, at time.Time) (*domain.CardMastery, error) {
	if m.RecordFn != nil {
		return m.RecordFn(ctx, userID, cardID, correct, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byCard, ok := m.Records[userID]
	if !ok {
		byCard = make(map[uuid.UUID]*domain.CardMastery)
		m.Records[userID] = byCard
	}
	rec, ok := byCard[cardID]
	if !ok {
		rec = domain.NewCardMastery(userID, cardID)
		byCard[cardID] = rec
	}
	rec.Record(correct, at)
	cp := *rec
	return &cp, nil
}

func (m *MockMasteryStore) ListByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]*domain.CardMastery, error) {
	if m.ListByUserFn != nil {
		return m.ListByUserFn(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]*domain.CardMastery, len(m.Records[userID]))
	for id, rec := range m.Records[userID] {
		cp := *rec
		out[id] = &cp
	}
	return out, nil
}

var _ store.MasteryStore = (*MockMasteryStore)(nil)
