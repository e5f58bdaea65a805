package mocks

import (
	"context"
	"database/sql"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// MockUserStore implements store.UserStore for testing. The default
// implementation keeps users keyed by normalized email and hashes pending
// passwords at bcrypt.MinCost, like the real store does at full cost.
type MockUserStore struct {
	mu sync.Mutex

	CreateFn     func(ctx context.Context, user *domain.User) error
	GetByEmailFn func(ctx context.Context, email string) (*domain.User, error)
	GetByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateFn     func(ctx context.Context, user *domain.User) error
	ListFn       func(ctx context.Context) ([]domain.User, error)
	DeleteFn     func(ctx context.Context, id uuid.UUID) error

	Users       map[string]*domain.User
	LastUserID  uuid.UUID
	CreateError error
	UpdateCalls int
}

// NewMockUserStore creates a new mock store with initialized defaults
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		Users: make(map[string]*domain.User),
	}
}

// AddUser stores user directly, hashing password when given.
func (m *MockUserStore) AddUser(user *domain.User, password string) *domain.User {
	if password != "" {
		user.HashedPassword = mustHash(password)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users[domain.NormalizeEmail(user.Email)] = user
	return user
}

func mustHash(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	if m.CreateError != nil {
		return m.CreateError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := domain.NormalizeEmail(user.Email)
	if _, exists := m.Users[key]; exists {
		return store.ErrEmailExists
	}
	if user.Password != "" {
		user.HashedPassword = mustHash(user.Password)
		user.Password = ""
	}
	stored := *user
	m.Users[key] = &stored
	m.LastUserID = user.ID
	return nil
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.Users[domain.NormalizeEmail(email)]
	if !exists {
		return nil, store.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.Users {
		if user.ID == id {
			cp := *user
			return &cp, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *MockUserStore) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	m.UpdateCalls++
	m.mu.Unlock()
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, user)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for email, existing := range m.Users {
		if existing.ID != user.ID {
			continue
		}
		key := domain.NormalizeEmail(user.Email)
		if email != key {
			if _, taken := m.Users[key]; taken {
				return store.ErrEmailExists
			}
			delete(m.Users, email)
		}
		stored := *user
		if stored.Password != "" {
			stored.HashedPassword = mustHash(stored.Password)
			stored.Password = ""
		} else {
			stored.HashedPassword = existing.HashedPassword
		}
		m.Users[key] = &stored
		return nil
	}
	return store.ErrUserNotFound
}

// List returns users newest first.
func (m *MockUserStore) List(ctx context.Context) ([]domain.User, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.Users))
	for _, u := range m.Users {
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b domain.User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *MockUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, user := range m.Users {
		if user.ID == id {
			delete(m.Users, email)
			return nil
		}
	}
	return store.ErrUserNotFound
}

func (m *MockUserStore) WithTx(*sql.Tx) store.UserStore { return m }

var _ store.UserStore = (*MockUserStore)(nil)
