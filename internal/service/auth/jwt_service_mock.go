package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockJWTService is a function-field JWTService for tests. Unset functions
// fall back to the fixed Token and Claims fields.
type MockJWTService struct {
	GenerateTokenFunc        func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateTokenFunc        func(ctx context.Context, tokenString string) (*Claims, error)
	GenerateRefreshTokenFunc func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateRefreshTokenFunc func(ctx context.Context, tokenString string) (*Claims, error)
	GenerateResetTokenFunc   func(ctx context.Context, userID uuid.UUID, fingerprint string) (string, error)
	ValidateResetTokenFunc   func(ctx context.Context, tokenString string) (*Claims, error)
	GenerateVerifyTokenFunc  func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateVerifyTokenFunc  func(ctx context.Context, tokenString string) (*Claims, error)

	Token           string
	TokenError      error
	ValidationError error
	Claims          *Claims
}

// NewMockJWTService returns a mock whose tokens validate as access tokens
// for a random user.
func NewMockJWTService() *MockJWTService {
	now := time.Now()
	userID := uuid.New()
	return &MockJWTService{
		Token: "mock-jwt-token",
		Claims: &Claims{
			UserID:    userID,
			TokenType: TokenTypeAccess,
			Subject:   userID.String(),
			IssuedAt:  now,
			ExpiresAt: now.Add(time.Hour),
			ID:        uuid.New().String(),
		},
	}
}

func (m *MockJWTService) fixed() (*Claims, error) {
	if m.ValidationError != nil {
		return nil, m.ValidationError
	}
	return m.Claims, nil
}

func (m *MockJWTService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.GenerateTokenFunc != nil {
		return m.GenerateTokenFunc(ctx, userID)
	}
	return m.Token, m.TokenError
}

func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(ctx, tokenString)
	}
	return m.fixed()
}

func (m *MockJWTService) GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.GenerateRefreshTokenFunc != nil {
		return m.GenerateRefreshTokenFunc(ctx, userID)
	}
	return m.Token + "-refresh", m.TokenError
}

func (m *MockJWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error) {
	if m.ValidateRefreshTokenFunc != nil {
		return m.ValidateRefreshTokenFunc(ctx, tokenString)
	}
	return m.fixed()
}

func (m *MockJWTService) GenerateResetToken(ctx context.Context, userID uuid.UUID, fingerprint string) (string, error) {
	if m.GenerateResetTokenFunc != nil {
		return m.GenerateResetTokenFunc(ctx, userID, fingerprint)
	}
	return m.Token + "-reset", m.TokenError
}

func (m *MockJWTService) ValidateResetToken(ctx context.Context, tokenString string) (*Claims, error) {
	if m.ValidateResetTokenFunc != nil {
		return m.ValidateResetTokenFunc(ctx, tokenString)
	}
	return m.fixed()
}

func (m *MockJWTService) GenerateVerifyToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.GenerateVerifyTokenFunc != nil {
		return m.GenerateVerifyTokenFunc(ctx, userID)
	}
	return m.Token + "-verify", m.TokenError
}

func (m *MockJWTService) ValidateVerifyToken(ctx context.Context, tokenString string) (*Claims, error) {
	if m.ValidateVerifyTokenFunc != nil {
		return m.ValidateVerifyTokenFunc(ctx, tokenString)
	}
	return m.fixed()
}

var _ JWTService = (*MockJWTService)(nil)
