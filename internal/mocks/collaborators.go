package mocks

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/events"
	"github.com/phrazzld/cramdeck/internal/platform/mailer"
)

// MockMissedTracker keeps missed card ids per user in insertion order.
type MockMissedTracker struct {
	mu     sync.Mutex
	Missed map[uuid.UUID][]uuid.UUID

	AddFn  func(ctx context.Context, userID, cardID uuid.UUID) error
	ListFn func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

func NewMockMissedTracker() *MockMissedTracker {
	return &MockMissedTracker{Missed: make(map[uuid.UUID][]uuid.UUID)}
}

func (m *MockMissedTracker) Add(ctx context.Context, userID, cardID uuid.UUID) error {
	if m.AddFn != nil {
		return m.AddFn(ctx, userID, cardID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.Missed[userID], cardID) {
		m.Missed[userID] = append(m.Missed[userID], cardID)
	}
	return nil
}

func (m *MockMissedTracker) Remove(ctx context.Context, userID, cardID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Missed[userID] = slices.DeleteFunc(m.Missed[userID], func(id uuid.UUID) bool { return id == cardID })
	return nil
}

func (m *MockMissedTracker) List(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Missed[userID]), nil
}

func (m *MockMissedTracker) Clear(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Missed, userID)
	return nil
}

// MockTokenRevoker records revoked token ids.
type MockTokenRevoker struct {
	mu      sync.Mutex
	Revoked map[string]time.Time

	RevokeFn    func(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevokedFn func(ctx context.Context, jti string) (bool, error)
}

func NewMockTokenRevoker() *MockTokenRevoker {
	return &MockTokenRevoker{Revoked: make(map[string]time.Time)}
}

func (m *MockTokenRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if m.RevokeFn != nil {
		return m.RevokeFn(ctx, jti, expiresAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Revoked[jti] = expiresAt
	return nil
}

func (m *MockTokenRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if m.IsRevokedFn != nil {
		return m.IsRevokedFn(ctx, jti)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Revoked[jti]
	return ok, nil
}

// MockMailer captures sent messages.
type MockMailer struct {
	mu     sync.Mutex
	Sent   []mailer.Message
	SendFn func(ctx context.Context, msg mailer.Message) error
}

func (m *MockMailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.SendFn != nil {
		return m.SendFn(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
	return nil
}

// Messages returns a copy of the sent messages.
func (m *MockMailer) Messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Sent)
}

// MockEventEmitter captures emitted events.
type MockEventEmitter struct {
	mu          sync.Mutex
	Events      []*events.TaskRequestEvent
	EmitEventFn func(ctx context.Context, event *events.TaskRequestEvent) error
}

func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if m.EmitEventFn != nil {
		return m.EmitEventFn(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

// Emitted returns a copy of the captured events.
func (m *MockEventEmitter) Emitted() []*events.TaskRequestEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Events)
}

var (
	_ mailer.Mailer       = (*MockMailer)(nil)
	_ events.EventEmitter = (*MockEventEmitter)(nil)
)
