package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/api/shared"
	"github.com/phrazzld/cramdeck/internal/mocks"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminFunc func(ctx context.Context, id uuid.UUID) (bool, error)

func (f adminFunc) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) { return f(ctx, id) }

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()
	claims := &auth.Claims{UserID: userID, TokenType: auth.TokenTypeAccess, ID: "jti-1"}

	tests := []struct {
		name        string
		authHeader  string
		validateErr error
		revoked     bool
		revokeErr   error
		wantStatus  int
	}{
		{name: "valid token", authHeader: "Bearer good", wantStatus: http.StatusOK},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", authHeader: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "no token", authHeader: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "expired", authHeader: "Bearer old", validateErr: auth.ErrExpiredToken, wantStatus: http.StatusUnauthorized},
		{name: "invalid", authHeader: "Bearer bad", validateErr: auth.ErrInvalidToken, wantStatus: http.StatusUnauthorized},
		{name: "refresh token used as access", authHeader: "Bearer r", validateErr: auth.ErrWrongTokenType, wantStatus: http.StatusUnauthorized},
		{name: "unexpected validation failure", authHeader: "Bearer x", validateErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
		{name: "revoked", authHeader: "Bearer good", revoked: true, wantStatus: http.StatusUnauthorized},
		{name: "revocation lookup fails", authHeader: "Bearer good", revokeErr: errors.New("redis down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			jwtService := &auth.MockJWTService{Claims: claims, ValidationError: tc.validateErr}
			revoker := mocks.NewMockTokenRevoker()
			if tc.revoked {
				require.NoError(t, revoker.Revoke(context.Background(), "jti-1", claims.ExpiresAt))
			}
			if tc.revokeErr != nil {
				revoker.IsRevokedFn = func(context.Context, string) (bool, error) { return false, tc.revokeErr }
			}

			var gotID uuid.UUID
			var gotClaims *auth.Claims
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, _ = GetUserID(r)
				gotClaims, _ = GetClaims(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/subjects", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			w := httptest.NewRecorder()
			NewAuthMiddleware(jwtService, revoker).Authenticate(next).ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, userID, gotID)
				assert.Same(t, claims, gotClaims)
			}
		})
	}
}

func TestAuthenticateWithoutRevoker(t *testing.T) {
	jwtService := auth.NewMockJWTService()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer mock-jwt-token")
	w := httptest.NewRecorder()
	NewAuthMiddleware(jwtService, nil).Authenticate(next).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	admin, student := uuid.New(), uuid.New()
	checker := adminFunc(func(_ context.Context, id uuid.UUID) (bool, error) {
		switch id {
		case admin:
			return true, nil
		case student:
			return false, nil
		}
		return false, errors.New("user not found")
	})

	tests := []struct {
		name       string
		userID     uuid.UUID
		wantStatus int
	}{
		{name: "admin", userID: admin, wantStatus: http.StatusOK},
		{name: "student", userID: student, wantStatus: http.StatusForbidden},
		{name: "deleted user", userID: uuid.New(), wantStatus: http.StatusUnauthorized},
		{name: "unauthenticated", userID: uuid.Nil, wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			if tc.userID != uuid.Nil {
				req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, tc.userID))
			}
			w := httptest.NewRecorder()
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

			RequireAdmin(checker)(next).ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestTraceMiddleware(t *testing.T) {
	var logs bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	})

	NewTraceMiddleware(base)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.NotEmpty(t, traceID)
	assert.Contains(t, logs.String(), `"msg":"inside handler"`)
	assert.Contains(t, logs.String(), `"trace_id":"`+traceID+`"`)
}
