package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/config"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
)

// hmacJWTService is an implementation of JWTService using HMAC-SHA signing.
type hmacJWTService struct {
	signingKey []byte
	lifetimes  map[TokenType]time.Duration
	timeFunc   func() time.Time
	clockSkew  time.Duration
}

type jwtCustomClaims struct {
	UserID      uuid.UUID `json:"uid"`
	TokenType   TokenType `json:"type"`
	Fingerprint string    `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

var _ JWTService = (*hmacJWTService)(nil)

// NewJWTService creates a new JWT service using HMAC-SHA signing.
func NewJWTService(cfg config.AuthConfig) (JWTService, error) {
	return newHMACJWTService(cfg, time.Now)
}

func newHMACJWTService(cfg config.AuthConfig, now func() time.Time) (*hmacJWTService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	return &hmacJWTService{
		signingKey: []byte(cfg.JWTSecret),
		lifetimes: map[TokenType]time.Duration{
			TokenTypeAccess:  time.Duration(cfg.TokenLifetimeMinutes) * time.Minute,
			TokenTypeRefresh: time.Duration(cfg.RefreshTokenLifetimeMinutes) * time.Minute,
			TokenTypeReset:   time.Duration(cfg.ResetTokenLifetimeMinutes) * time.Minute,
			TokenTypeVerify:  VerifyTokenLifetime,
		},
		timeFunc:  now,
		clockSkew: 2 * time.Minute,
	}, nil
}

func (s *hmacJWTService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.generate(ctx, TokenTypeAccess, userID, "")
}

func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	return s.validate(ctx, TokenTypeAccess, tokenString)
}

func (s *hmacJWTService) GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.generate(ctx, TokenTypeRefresh, userID, "")
}

// ValidateRefreshToken reports refresh-specific errors so clients know to
// log in again rather than retry.
func (s *hmacJWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.validate(ctx, TokenTypeRefresh, tokenString)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, ErrExpiredToken):
		return nil, ErrExpiredRefreshToken
	case errors.Is(err, ErrWrongTokenType):
		return nil, err
	default:
		return nil, ErrInvalidRefreshToken
	}
}

func (s *hmacJWTService) GenerateResetToken(ctx context.Context, userID uuid.UUID, fingerprint string) (string, error) {
	if fingerprint == "" {
		return "", errors.New("reset token requires a password fingerprint")
	}
	return s.generate(ctx, TokenTypeReset, userID, fingerprint)
}

func (s *hmacJWTService) ValidateResetToken(ctx context.Context, tokenString string) (*Claims, error) {
	return s.validate(ctx, TokenTypeReset, tokenString)
}

func (s *hmacJWTService) GenerateVerifyToken(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.generate(ctx, TokenTypeVerify, userID, "")
}

func (s *hmacJWTService) ValidateVerifyToken(ctx context.Context, tokenString string) (*Claims, error) {
	return s.validate(ctx, TokenTypeVerify, tokenString)
}

func (s *hmacJWTService) generate(ctx context.Context, typ TokenType, userID uuid.UUID, fingerprint string) (string, error) {
	now := s.timeFunc()
	claims := jwtCustomClaims{
		UserID:      userID,
		TokenType:   typ,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetimes[typ])),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		logger.FromContext(ctx).Error("failed to sign JWT",
			"error", err,
			"user_id", userID,
			"token_type", typ)
		return "", fmt.Errorf("failed to sign %s token with HMAC-SHA256: %w", typ, err)
	}
	return signed, nil
}

func (s *hmacJWTService) validate(ctx context.Context, want TokenType, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	now := s.timeFunc()
	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		log.Debug("token validation failed", "error", err, "token_type", want)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != want {
		log.Debug("token validation failed: wrong token type", "expected", want, "actual", claims.TokenType)
		return nil, ErrWrongTokenType
	}

	return &Claims{
		UserID:      claims.UserID,
		TokenType:   claims.TokenType,
		Fingerprint: claims.Fingerprint,
		Subject:     claims.Subject,
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
		ID:          claims.ID,
	}, nil
}
