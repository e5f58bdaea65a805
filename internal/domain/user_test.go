package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	user, err := NewUser("  Student@Example.COM ", "secret1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if user.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if user.Email != "student@example.com" {
		t.Errorf("Expected normalized email, got %q", user.Email)
	}
	if user.EmailVerified {
		t.Error("Expected new user to be unverified")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"empty email", "", "secret1", ErrEmptyEmail},
		{"malformed email", "not-an-email", "secret1", ErrInvalidEmail},
		{"empty password", "a@b.com", "", ErrEmptyPassword},
		{"short password", "a@b.com", "12345", ErrPasswordTooShort},
		{"long password", "a@b.com", strings.Repeat("x", MaxPasswordLength+1), ErrPasswordTooLong},
	}
	for _, tc := range tests {
		_, err := NewUser(tc.email, tc.password)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected a validation error, got %v", tc.name, err)
		}
	}
}

func TestUserValidate(t *testing.T) {
	t.Parallel()

	valid := User{ID: uuid.New(), Email: "test@example.com", HashedPassword: "$2a$10$hash"}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	noID := valid
	noID.ID = uuid.Nil
	if err := noID.Validate(); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Expected %v, got %v", ErrInvalidID, err)
	}

	noHash := valid
	noHash.HashedPassword = ""
	if err := noHash.Validate(); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("Expected %v, got %v", ErrEmptyPassword, err)
	}
}

func TestUserIsAdmin(t *testing.T) {
	t.Parallel()
	u := User{Email: "admin@example.com"}

	if !u.IsAdmin(" ADMIN@example.com") {
		t.Error("Expected case-insensitive admin match")
	}
	if u.IsAdmin("other@example.com") {
		t.Error("Expected other address not to match")
	}
	if u.IsAdmin("") {
		t.Error("Expected no admin when none is configured")
	}
}

func TestValidatePasswordChange(t *testing.T) {
	t.Parallel()

	if err := ValidatePasswordChange("secret1", "secret1"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	// Mismatch wins even when the password is also too short.
	if err := ValidatePasswordChange("abc", "abd"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Expected %v, got %v", ErrPasswordMismatch, err)
	}
	if err := ValidatePasswordChange("abc", "abc"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("Expected %v, got %v", ErrPasswordTooShort, err)
	}

	var ve *ValidationError
	err := ValidatePasswordChange("abc", "abd")
	if !errors.As(err, &ve) || ve.Field != "confirm_password" {
		t.Errorf("Expected confirm_password field error, got %v", err)
	}
}
