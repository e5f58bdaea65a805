package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/api/shared"
	"github.com/phrazzld/cramdeck/internal/config"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/mocks"
	"github.com/phrazzld/cramdeck/internal/service"
	"github.com/phrazzld/cramdeck/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminEmail = "admin@example.com"

type authFixture struct {
	users   *mocks.MockUserStore
	mailer  *mocks.MockMailer
	revoker *mocks.MockTokenRevoker
	tokens  auth.JWTService
	db      sqlmock.Sqlmock
	svc     service.UserService
	handler *AuthHandler
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   strings.Repeat("s", 32),
		TokenLifetimeMinutes:        15,
		RefreshTokenLifetimeMinutes: 60,
		ResetTokenLifetimeMinutes:   30,
		BCryptCost:                  4,
		AdminEmail:                  testAdminEmail,
	})
	require.NoError(t, err)

	f := &authFixture{
		users:   mocks.NewMockUserStore(),
		mailer:  &mocks.MockMailer{},
		revoker: mocks.NewMockTokenRevoker(),
		tokens:  tokens,
		db:      dbMock,
	}
	f.svc = service.NewUserService(f.users, db, tokens, auth.NewBcryptVerifier(),
		f.revoker, f.mailer, testAdminEmail, discardLogger())
	f.handler = NewAuthHandler(f.svc, discardLogger())
	return f
}

func (f *authFixture) mailedToken(t *testing.T) string {
	t.Helper()
	sent := f.mailer.Messages()
	require.NotEmpty(t, sent)
	lines := strings.Split(sent[len(sent)-1].Body, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	return lines[2]
}

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		commit     bool
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "valid registration",
			body:       RegisterRequest{Email: "student@example.com", Password: "secret1"},
			commit:     true,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid email",
			body:       RegisterRequest{Email: "not-an-email", Password: "secret1"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid Email: invalid email format",
		},
		{
			name:       "password too short",
			body:       RegisterRequest{Email: "s@example.com", Password: "abc"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid Password: too short",
		},
		{
			name:       "unknown field",
			body:       map[string]string{"email": "s@example.com", "password": "secret1", "role": "admin"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid request format",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newAuthFixture(t)
			if tc.commit {
				f.db.ExpectBegin()
				f.db.ExpectCommit()
			}

			w := serve(t, f.handler.Register, testRequest{method: http.MethodPost, body: tc.body})

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, errorMessage(t, w))
			}
			if tc.wantStatus == http.StatusCreated {
				user := decode[UserResponse](t, w)
				assert.Equal(t, "student@example.com", user.Email)
				assert.False(t, user.EmailVerified)
				assert.Len(t, f.mailer.Messages(), 1)
			}
			assert.NoError(t, f.db.ExpectationsWereMet())
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.users.AddUser(&domain.User{ID: uuid.New(), Email: "taken@example.com"}, "secret1")
	f.db.ExpectBegin()
	f.db.ExpectRollback()

	w := serve(t, f.handler.Register, testRequest{
		method: http.MethodPost,
		body:   RegisterRequest{Email: "Taken@example.com", Password: "secret1"},
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already exists", errorMessage(t, w))
}

func TestVerifyLoginRefreshLogout(t *testing.T) {
	f := newAuthFixture(t)
	f.db.ExpectBegin()
	f.db.ExpectCommit()
	f.db.ExpectBegin()
	f.db.ExpectCommit()

	w := serve(t, f.handler.Register, testRequest{
		method: http.MethodPost,
		body:   RegisterRequest{Email: "s@example.com", Password: "secret1"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	login := testRequest{method: http.MethodPost, body: LoginRequest{Email: "s@example.com", Password: "secret1"}}
	w = serve(t, f.handler.Login, login)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Email address has not been verified", errorMessage(t, w))

	w = serve(t, f.handler.VerifyEmail, testRequest{method: http.MethodPost, body: TokenRequest{Token: f.mailedToken(t)}})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = serve(t, f.handler.Login, login)
	require.Equal(t, http.StatusOK, w.Code)
	pair := decode[AuthResponse](t, w)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	w = serve(t, f.handler.Login, testRequest{method: http.MethodPost, body: LoginRequest{Email: "s@example.com", Password: "wrong1"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", errorMessage(t, w))

	w = serve(t, f.handler.RefreshToken, testRequest{method: http.MethodPost, body: RefreshTokenRequest{RefreshToken: pair.RefreshToken}})
	require.Equal(t, http.StatusOK, w.Code)
	rotated := decode[AuthResponse](t, w)

	w = serve(t, f.handler.RefreshToken, testRequest{method: http.MethodPost, body: RefreshTokenRequest{RefreshToken: pair.RefreshToken}})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "the old refresh token was rotated out")

	w = serve(t, f.handler.RefreshToken, testRequest{method: http.MethodPost, body: RefreshTokenRequest{RefreshToken: rotated.AccessToken}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid refresh token", errorMessage(t, w))

	claims, err := f.tokens.ValidateToken(context.Background(), rotated.AccessToken)
	require.NoError(t, err)
	logoutReq := testRequest{method: http.MethodPost, body: LogoutRequest{RefreshToken: rotated.RefreshToken}}
	w = serveWithClaims(t, f.handler.Logout, logoutReq, claims)
	assert.Equal(t, http.StatusNoContent, w.Code)

	revoked, err := f.revoker.IsRevoked(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestLogoutRequiresClaims(t *testing.T) {
	f := newAuthFixture(t)
	w := serve(t, f.handler.Logout, testRequest{method: http.MethodPost})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutWithoutBody(t *testing.T) {
	f := newAuthFixture(t)
	claims := &auth.Claims{UserID: uuid.New(), ID: "jti-1"}

	w := serveWithClaims(t, f.handler.Logout, testRequest{method: http.MethodPost}, claims)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, f.revoker.Revoked, "jti-1")
}

func TestPasswordResetHandlers(t *testing.T) {
	f := newAuthFixture(t)
	f.users.AddUser(&domain.User{ID: uuid.New(), Email: "s@example.com"}, "secret1")

	w := serve(t, f.handler.RequestPasswordReset, testRequest{method: http.MethodPost, body: PasswordResetRequest{Email: "ghost@example.com"}})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, f.mailer.Messages())

	w = serve(t, f.handler.RequestPasswordReset, testRequest{method: http.MethodPost, body: PasswordResetRequest{Email: "s@example.com"}})
	assert.Equal(t, http.StatusAccepted, w.Code)
	token := f.mailedToken(t)

	tests := []struct {
		name       string
		body       PasswordResetConfirmRequest
		tx         bool
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "mismatch",
			body:       PasswordResetConfirmRequest{Token: token, Password: "newpass1", ConfirmPassword: "newpass2"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid confirm_password: does not match",
		},
		{
			name:       "too short",
			body:       PasswordResetConfirmRequest{Token: token, Password: "abc", ConfirmPassword: "abc"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid password: is too short",
		},
		{
			name:       "garbage token",
			body:       PasswordResetConfirmRequest{Token: "garbage", Password: "newpass1", ConfirmPassword: "newpass1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "success",
			body:       PasswordResetConfirmRequest{Token: token, Password: "newpass1", ConfirmPassword: "newpass1"},
			tx:         true,
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.tx {
				f.db.ExpectBegin()
				f.db.ExpectCommit()
			}
			w := serve(t, f.handler.ConfirmPasswordReset, testRequest{method: http.MethodPost, body: tc.body})
			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, errorMessage(t, w))
			}
		})
	}

	f.db.ExpectBegin()
	f.db.ExpectRollback()
	w = serve(t, f.handler.ConfirmPasswordReset, testRequest{
		method: http.MethodPost,
		body:   PasswordResetConfirmRequest{Token: token, Password: "another1", ConfirmPassword: "another1"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Reset link has already been used", errorMessage(t, w))
}

func TestMeHandler(t *testing.T) {
	f := newAuthFixture(t)
	admin := f.users.AddUser(&domain.User{ID: uuid.New(), Email: testAdminEmail, EmailVerified: true}, "secret1")

	w := serve(t, f.handler.Me, testRequest{userID: admin.ID})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, testAdminEmail, body["email"])
	assert.Equal(t, true, body["is_admin"])

	w = serve(t, f.handler.Me, testRequest{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// serveWithClaims is serve with access token claims in the context, as the
// auth middleware leaves them.
func serveWithClaims(t *testing.T, h http.HandlerFunc, tr testRequest, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()
	tr.userID = claims.UserID
	return serve(t, func(w http.ResponseWriter, r *http.Request) {
		h(w, r.WithContext(context.WithValue(r.Context(), shared.ClaimsContextKey, claims)))
	}, tr)
}
