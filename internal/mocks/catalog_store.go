package mocks

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/store"
)

// MockSubjectStore implements store.SubjectStore over a map.
type MockSubjectStore struct {
	mu       sync.Mutex
	Subjects map[uuid.UUID]domain.Subject

	ListFn    func(ctx context.Context) ([]domain.Subject, error)
	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Subject, error)
	CreateFn  func(ctx context.Context, subject *domain.Subject) error
	RenameFn  func(ctx context.Context, id uuid.UUID, name string) error
	DeleteFn  func(ctx context.Context, id uuid.UUID) error
}

// NewMockSubjectStore returns an empty store seeded with subjects.
func NewMockSubjectStore(subjects ...domain.Subject) *MockSubjectStore {
	m := &MockSubjectStore{Subjects: make(map[uuid.UUID]domain.Subject)}
	for _, s := range subjects {
		m.Subjects[s.ID] = s
	}
	return m
}

func (m *MockSubjectStore) List(ctx context.Context) ([]domain.Subject, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Subject, 0, len(m.Subjects))
	for _, s := range m.Subjects {
		out = append(out, s)
	}
	return out, nil
}

func (m *MockSubjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Subjects[id]
	if !ok {
		return nil, store.ErrSubjectNotFound
	}
	return &s, nil
}

func (m *MockSubjectStore) Create(ctx context.Context, subject *domain.Subject) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, subject)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Subjects {
		if strings.EqualFold(s.Name, subject.Name) {
			return store.ErrSubjectNameExists
		}
	}
	m.Subjects[subject.ID] = *subject
	return nil
}

func (m *MockSubjectStore) Rename(ctx context.Context, id uuid.UUID, name string) error {
	if m.RenameFn != nil {
		return m.RenameFn(ctx, id, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Subjects[id]
	if !ok {
		return store.ErrSubjectNotFound
	}
	s.Name = name
	m.Subjects[id] = s
	return nil
}

func (m *MockSubjectStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Subjects[id]; !ok {
		return store.ErrSubjectNotFound
	}
	delete(m.Subjects, id)
	return nil
}

func (m *MockSubjectStore) WithTx(*sql.Tx) store.SubjectStore { return m }

// MockSubtopicStore implements store.SubtopicStore over a map.
type MockSubtopicStore struct {
	mu        sync.Mutex
	Subtopics map[uuid.UUID]domain.Subtopic
	// OrderCalls records SetDisplayOrder arguments in call order.
	OrderCalls []OrderCall

	ListBySubjectFn   func(ctx context.Context, subjectID uuid.UUID) ([]domain.Subtopic, error)
	GetByIDFn         func(ctx context.Context, id uuid.UUID) (*domain.Subtopic, error)
	CreateFn          func(ctx context.Context, subtopic *domain.Subtopic) error
	SetDisplayOrderFn func(ctx context.Context, id uuid.UUID, order int) error
	DeleteFn          func(ctx context.Context, id uuid.UUID) error
}

// OrderCall is one recorded SetDisplayOrder.
type OrderCall struct {
	ID    uuid.UUID
	Order int
}

// NewMockSubtopicStore returns a store seeded with subtopics.
func NewMockSubtopicStore(subtopics ...domain.Subtopic) *MockSubtopicStore {
	m := &MockSubtopicStore{Subtopics: make(map[uuid.UUID]domain.Subtopic)}
	for _, s := range subtopics {
		m.Subtopics[s.ID] = s
	}
	return m
}

func (m *MockSubtopicStore) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.Subtopic, error) {
	if m.ListBySubjectFn != nil {
		return m.ListBySubjectFn(ctx, subjectID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Subtopic
	for _, s := range m.Subtopics {
		if s.SubjectID == subjectID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockSubtopicStore) ListAll(ctx context.Context) ([]domain.Subtopic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Subtopic, 0, len(m.Subtopics))
	for _, s := range m.Subtopics {
		out = append(out, s)
	}
	return out, nil
}

func (m *MockSubtopicStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subtopic, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Subtopics[id]
	if !ok {
		return nil, store.ErrSubtopicNotFound
	}
	return &s, nil
}

func (m *MockSubtopicStore) Create(ctx context.Context, subtopic *domain.Subtopic) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, subtopic)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Subtopics[subtopic.ID] = *subtopic
	return nil
}

func (m *MockSubtopicStore) Rename(ctx context.Context, id uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Subtopics[id]
	if !ok {
		return store.ErrSubtopicNotFound
	}
	s.Name = name
	m.Subtopics[id] = s
	return nil
}

func (m *MockSubtopicStore) SetDisplayOrder(ctx context.Context, id uuid.UUID, order int) error {
	if m.SetDisplayOrderFn != nil {
		return m.SetDisplayOrderFn(ctx, id, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrderCalls = append(m.OrderCalls, OrderCall{ID: id, Order: order})
	s, ok := m.Subtopics[id]
	if !ok {
		return store.ErrSubtopicNotFound
	}
	s.DisplayOrder = domain.Ordered(order)
	m.Subtopics[id] = s
	return nil
}

func (m *MockSubtopicStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Subtopics[id]; !ok {
		return store.ErrSubtopicNotFound
	}
	delete(m.Subtopics, id)
	return nil
}

func (m *MockSubtopicStore) WithTx(*sql.Tx) store.SubtopicStore { return m }

// MockFlashcardStore implements store.FlashcardStore over a map.
type MockFlashcardStore struct {
	mu         sync.Mutex
	Cards      map[uuid.UUID]domain.Flashcard
	OrderCalls []OrderCall

	ListFn            func(ctx context.Context, filter store.FlashcardFilter) ([]domain.Flashcard, error)
	GetByIDFn         func(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error)
	CreateFn          func(ctx context.Context, card *domain.Flashcard) error
	UpdateFn          func(ctx context.Context, card *domain.Flashcard) error
	SetDisplayOrderFn func(ctx context.Context, id uuid.UUID, order int) error
	DeleteFn          func(ctx context.Context, id uuid.UUID) error
}

// NewMockFlashcardStore returns a store seeded with cards.
func NewMockFlashcardStore(cards ...domain.Flashcard) *MockFlashcardStore {
	m := &MockFlashcardStore{Cards: make(map[uuid.UUID]domain.Flashcard)}
	for _, c := range cards {
		m.Cards[c.ID] = c
	}
	return m
}

func (m *MockFlashcardStore) List(ctx context.Context, filter store.FlashcardFilter) ([]domain.Flashcard, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Flashcard
	for _, c := range m.Cards {
		if filter.SubjectID != uuid.Nil && c.SubjectID != filter.SubjectID {
			continue
		}
		if filter.SubtopicID != uuid.Nil && c.SubtopicID != filter.SubtopicID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *MockFlashcardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Cards[id]
	if !ok {
		return nil, store.ErrFlashcardNotFound
	}
	return &c, nil
}

func (m *MockFlashcardStore) Create(ctx context.Context, card *domain.Flashcard) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, card)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cards[card.ID] = *card
	return nil
}

func (m *MockFlashcardStore) Update(ctx context.Context, card *domain.Flashcard) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, card)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Cards[card.ID]; !ok {
		return store.ErrFlashcardNotFound
	}
	m.Cards[card.ID] = *card
	return nil
}

func (m *MockFlashcardStore) SetDisplayOrder(ctx context.Context, id uuid.UUID, order int) error {
	if m.SetDisplayOrderFn != nil {
		return m.SetDisplayOrderFn(ctx, id, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrderCalls = append(m.OrderCalls, OrderCall{ID: id, Order: order})
	c, ok := m.Cards[id]
	if !ok {
		return store.ErrFlashcardNotFound
	}
	c.DisplayOrder = domain.Ordered(order)
	m.Cards[id] = c
	return nil
}

func (m *MockFlashcardStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Cards[id]; !ok {
		return store.ErrFlashcardNotFound
	}
	delete(m.Cards, id)
	return nil
}

func (m *MockFlashcardStore) WithTx(*sql.Tx) store.FlashcardStore { return m }

var (
	_ store.SubjectStore   = (*MockSubjectStore)(nil)
	_ store.SubtopicStore  = (*MockSubtopicStore)(nil)
	_ store.FlashcardStore = (*MockFlashcardStore)(nil)
)
