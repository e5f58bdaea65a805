package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

func testConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   testSecret,
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 1440,
		ResetTokenLifetimeMinutes:   30,
		BCryptCost:                  4,
	}
}

func serviceAt(t *testing.T, at time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newHMACJWTService(testConfig(), func() time.Time { return at })
	require.NoError(t, err)
	return svc
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.JWTSecret = "short"
	_, err := NewJWTService(cfg)
	assert.Error(t, err)
}

func TestTokenLifecycle(t *testing.T) {
	t.Parallel()
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := serviceAt(t, issued)
	ctx := context.Background()
	userID := uuid.New()

	tests := []struct {
		name     string
		generate func() (string, error)
		validate func(string) (*Claims, error)
		typ      TokenType
		lifetime time.Duration
	}{
		{
			name:     "access",
			generate: func() (string, error) { return svc.GenerateToken(ctx, userID) },
			validate: func(s string) (*Claims, error) { return svc.ValidateToken(ctx, s) },
			typ:      TokenTypeAccess, lifetime: time.Hour,
		},
		{
			name:     "refresh",
			generate: func() (string, error) { return svc.GenerateRefreshToken(ctx, userID) },
			validate: func(s string) (*Claims, error) { return svc.ValidateRefreshToken(ctx, s) },
			typ:      TokenTypeRefresh, lifetime: 24 * time.Hour,
		},
		{
			name:     "reset",
			generate: func() (string, error) { return svc.GenerateResetToken(ctx, userID, "fp") },
			validate: func(s string) (*Claims, error) { return svc.ValidateResetToken(ctx, s) },
			typ:      TokenTypeReset, lifetime: 30 * time.Minute,
		},
		{
			name:     "verify",
			generate: func() (string, error) { return svc.GenerateVerifyToken(ctx, userID) },
			validate: func(s string) (*Claims, error) { return svc.ValidateVerifyToken(ctx, s) },
			typ:      TokenTypeVerify, lifetime: VerifyTokenLifetime,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			token, err := tc.generate()
			require.NoError(t, err)

			claims, err := tc.validate(token)
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
			assert.Equal(t, tc.typ, claims.TokenType)
			assert.Equal(t, issued.Unix(), claims.IssuedAt.Unix())
			assert.Equal(t, issued.Add(tc.lifetime).Unix(), claims.ExpiresAt.Unix())
			assert.NotEmpty(t, claims.ID)
		})
	}
}

func TestTokenTypesDoNotCross(t *testing.T) {
	t.Parallel()
	svc := serviceAt(t, time.Now())
	ctx := context.Background()
	userID := uuid.New()

	access, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)
	reset, err := svc.GenerateResetToken(ctx, userID, "fp")
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(ctx, access)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = svc.ValidateResetToken(ctx, access)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = svc.ValidateToken(ctx, reset)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	claims, err := svc.ValidateResetToken(ctx, reset)
	require.NoError(t, err)
	assert.Equal(t, "fp", claims.Fingerprint)

	_, err = svc.GenerateResetToken(ctx, userID, "")
	assert.Error(t, err)
}

func TestValidateTokenErrors(t *testing.T) {
	t.Parallel()
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	ctx := context.Background()

	token, err := serviceAt(t, issued).GenerateToken(ctx, userID)
	require.NoError(t, err)
	refresh, err := serviceAt(t, issued).GenerateRefreshToken(ctx, userID)
	require.NoError(t, err)

	wrongKey := testConfig()
	wrongKey.JWTSecret = "wrong-secret-that-is-long-enough-for-testing"
	other, err := newHMACJWTService(wrongKey, func() time.Time { return issued })
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"uid": userID.String(), "type": "access"})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		svc     *hmacJWTService
		token   string
		refresh bool
		want    error
	}{
		{name: "within skew", svc: serviceAt(t, issued.Add(61*time.Minute)), token: token},
		{name: "expired", svc: serviceAt(t, issued.Add(2*time.Hour)), token: token, want: ErrExpiredToken},
		{name: "not yet valid", svc: serviceAt(t, issued.Add(-10*time.Minute)), token: token, want: ErrTokenNotYetValid},
		{name: "wrong key", svc: other, token: token, want: ErrInvalidToken},
		{name: "malformed", svc: serviceAt(t, issued), token: "not.a.jwt", want: ErrInvalidToken},
		{name: "alg none", svc: serviceAt(t, issued), token: noneToken, want: ErrInvalidToken},
		{name: "missing", svc: serviceAt(t, issued), token: "", want: ErrMissingToken},
		{name: "expired refresh", svc: serviceAt(t, issued.Add(48*time.Hour)), token: refresh, refresh: true, want: ErrExpiredRefreshToken},
		{name: "garbage refresh", svc: serviceAt(t, issued), token: "x", refresh: true, want: ErrInvalidRefreshToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var err error
			if tc.refresh {
				_, err = tc.svc.ValidateRefreshToken(ctx, tc.token)
			} else {
				_, err = tc.svc.ValidateToken(ctx, tc.token)
			}
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPasswordHelpers(t *testing.T) {
	t.Parallel()
	a := PasswordFingerprint("$2a$10$aaaa")
	assert.Len(t, a, 16)
	assert.Equal(t, a, PasswordFingerprint("$2a$10$aaaa"))
	assert.NotEqual(t, a, PasswordFingerprint("$2a$10$bbbb"))

	hash, err := bcryptHash("secret1")
	require.NoError(t, err)
	v := NewBcryptVerifier()
	assert.NoError(t, v.Compare(hash, "secret1"))
	assert.Error(t, v.Compare(hash, "secret2"))
}
