package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Password length bounds. The upper bound is bcrypt's input limit.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// User represents a registered account.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // Plaintext, only set between registration and hashing
	HashedPassword string    `json:"-"`
	EmailVerified  bool      `json:"email_verified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new unverified User with the given email and password.
// The caller is responsible for hashing the password before storing the user.
func NewUser(email, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Email:     NormalizeEmail(email),
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if u.Email == "" {
		return NewValidationError("email", "cannot be empty", ErrEmptyEmail)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return NewValidationError("email", "has invalid format", ErrInvalidEmail)
	}
	if u.Password != "" {
		return ValidatePassword(u.Password)
	}
	if u.HashedPassword == "" {
		return NewValidationError("password", "cannot be empty", ErrEmptyPassword)
	}
	return nil
}

// IsAdmin reports whether the user is the configured administrator.
func (u *User) IsAdmin(adminEmail string) bool {
	return adminEmail != "" && strings.EqualFold(u.Email, strings.TrimSpace(adminEmail))
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword enforces the length bounds.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return NewValidationError("password", "cannot be empty", ErrEmptyPassword)
	case len(password) < MinPasswordLength:
		return NewValidationError("password", "is too short", ErrPasswordTooShort)
	case len(password) > MaxPasswordLength:
		return NewValidationError("password", "is too long", ErrPasswordTooLong)
	}
	return nil
}

// ValidatePasswordChange checks a new password and its confirmation.
// A mismatch is reported before length so the user fixes typos first.
func ValidatePasswordChange(password, confirm string) error {
	if password != confirm {
		return NewValidationError("confirm_password", "does not match", ErrPasswordMismatch)
	}
	return ValidatePassword(password)
}
