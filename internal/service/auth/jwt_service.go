package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenType is the purpose a token was issued for. A token only validates
// for its own type.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
	// TokenTypeReset authorizes one password reset.
	TokenTypeReset TokenType = "reset"
	// TokenTypeVerify confirms ownership of an email address.
	TokenTypeVerify TokenType = "verify"
)

// VerifyTokenLifetime bounds email verification links.
const VerifyTokenLifetime = 72 * time.Hour

// JWTService issues and validates signed tokens.
type JWTService interface {
	// GenerateToken creates an access token.
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)
	// ValidateToken checks an access token.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateResetToken binds a reset token to the account's current
	// password fingerprint so it stops working once the password changes.
	GenerateResetToken(ctx context.Context, userID uuid.UUID, fingerprint string) (string, error)
	ValidateResetToken(ctx context.Context, tokenString string) (*Claims, error)

	GenerateVerifyToken(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateVerifyToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the validated contents of a token.
type Claims struct {
	UserID      uuid.UUID `json:"uid,omitempty"`
	TokenType   TokenType `json:"type,omitempty"`
	Fingerprint string    `json:"fp,omitempty"`

	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
