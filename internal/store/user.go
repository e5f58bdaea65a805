package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
)

// UserStore persists accounts.
type UserStore interface {
	// Create hashes user.Password when set and stores the user.
	// Returns ErrEmailExists when the address is taken.
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update writes email, verification flag and, when user.Password is set,
	// a freshly hashed password.
	Update(ctx context.Context, user *domain.User) error
	// List returns every user, newest first.
	List(ctx context.Context) ([]domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(tx *sql.Tx) UserStore
}
