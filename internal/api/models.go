package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenRequest carries a single emailed or refresh token.
type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// RefreshTokenRequest is the body of POST /auth/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest optionally names a refresh token to revoke alongside the
// access token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// PasswordResetRequest is the body of POST /auth/password-reset.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest is the body of POST /auth/password-reset/confirm.
// Length and match are checked by the service so the messages agree with
// the other password paths.
type PasswordResetConfirmRequest struct {
	Token           string `json:"token"            validate:"required"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// AuthResponse is returned by login and refresh.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserResponse describes an account.
type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, EmailVerified: u.EmailVerified, CreatedAt: u.CreatedAt}
}

// NameRequest creates or renames a subject or subtopic.
type NameRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// MoveRequest moves an item one place.
type MoveRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

// ReorderRequest lists every sibling id in the new order.
type ReorderRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

// FlashcardRequest creates or updates a flashcard.
type FlashcardRequest struct {
	SubjectID  uuid.UUID `json:"subject_id"  validate:"required"`
	SubtopicID uuid.UUID `json:"subtopic_id" validate:"required"`
	Front      string    `json:"front_text"  validate:"required"`
	Back       string    `json:"back_text"   validate:"required"`
}

// SubtopicResponse adds the display position, which the domain type keeps
// out of its own JSON.
type SubtopicResponse struct {
	ID           uuid.UUID `json:"id"`
	SubjectID    uuid.UUID `json:"subject_id"`
	Name         string    `json:"name"`
	DisplayOrder *int      `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

func subtopicToResponse(s domain.Subtopic) SubtopicResponse {
	return SubtopicResponse{
		ID:           s.ID,
		SubjectID:    s.SubjectID,
		Name:         s.Name,
		DisplayOrder: orderPtr(s.DisplayOrder),
		CreatedAt:    s.CreatedAt,
	}
}

// FlashcardResponse mirrors SubtopicResponse for cards.
type FlashcardResponse struct {
	ID           uuid.UUID `json:"id"`
	SubjectID    uuid.UUID `json:"subject_id"`
	SubtopicID   uuid.UUID `json:"subtopic_id"`
	Front        string    `json:"front_text"`
	Back         string    `json:"back_text"`
	DisplayOrder *int      `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

func flashcardToResponse(c domain.Flashcard) FlashcardResponse {
	return FlashcardResponse{
		ID:           c.ID,
		SubjectID:    c.SubjectID,
		SubtopicID:   c.SubtopicID,
		Front:        c.Front,
		Back:         c.Back,
		DisplayOrder: orderPtr(c.DisplayOrder),
		CreatedAt:    c.CreatedAt,
	}
}

func orderPtr(o domain.DisplayOrder) *int {
	if i, ok := o.Index(); ok {
		return &i
	}
	return nil
}

// StudySessionRequest selects a deck.
type StudySessionRequest struct {
	Mode       string    `json:"mode"        validate:"required,oneof=subject subtopic random missed"`
	SubjectID  uuid.UUID `json:"subject_id"`
	SubtopicID uuid.UUID `json:"subtopic_id"`
}

// MasteryResponse is one subject row of the dashboard.
type MasteryResponse struct {
	domain.SubjectMastery
	Percent int `json:"percent"`
}

// ImportResponse reports what a deck import created.
type ImportResponse struct {
	Subjects  int `json:"subjects"`
	Subtopics int `json:"subtopics"`
	Cards     int `json:"cards"`
}
