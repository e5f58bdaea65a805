package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/config"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/mocks"
	"github.com/phrazzld/cramdeck/internal/platform/mailer"
	"github.com/phrazzld/cramdeck/internal/service"
	"github.com/phrazzld/cramdeck/internal/service/auth"
	"github.com/phrazzld/cramdeck/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const adminEmail = "admin@example.com"

type userFixture struct {
	users   *mocks.MockUserStore
	revoker *mocks.MockTokenRevoker
	mailer  *mocks.MockMailer
	tokens  auth.JWTService
	db      sqlmock.Sqlmock
	svc     service.UserService
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   strings.Repeat("k", 32),
		TokenLifetimeMinutes:        15,
		RefreshTokenLifetimeMinutes: 60,
		ResetTokenLifetimeMinutes:   30,
		BCryptCost:                  4,
		AdminEmail:                  adminEmail,
	})
	require.NoError(t, err)

	f := &userFixture{
		users:   mocks.NewMockUserStore(),
		revoker: mocks.NewMockTokenRevoker(),
		mailer:  &mocks.MockMailer{},
		tokens:  tokens,
		db:      dbMock,
	}
	f.svc = service.NewUserService(f.users, db, tokens, auth.NewBcryptVerifier(),
		f.revoker, f.mailer, adminEmail, discardLogger())
	return f
}

// expectTx queues n committed transactions.
func (f *userFixture) expectTx(n int) {
	for i := 0; i < n; i++ {
		f.db.ExpectBegin()
		f.db.ExpectCommit()
	}
}

// lastToken pulls the token line out of the most recent email.
func (f *userFixture) lastToken(t *testing.T) string {
	t.Helper()
	sent := f.mailer.Messages()
	require.NotEmpty(t, sent)
	lines := strings.Split(sent[len(sent)-1].Body, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	return lines[2]
}

func TestRegisterVerifyLogin(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.expectTx(2)

	user, err := f.svc.Register(ctx, " Student@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", user.Email)
	assert.False(t, user.EmailVerified)

	_, err = f.svc.Login(ctx, "student@example.com", "secret1")
	assert.ErrorIs(t, err, service.ErrEmailNotVerified)

	require.NoError(t, f.svc.VerifyEmail(ctx, f.lastToken(t)))

	pair, err := f.svc.Login(ctx, "STUDENT@example.com", "secret1")
	require.NoError(t, err)
	claims, err := f.tokens.ValidateToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = f.svc.Login(ctx, "student@example.com", "wrong-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestRegisterValidation(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@b.com", "12345")
	assert.ErrorIs(t, err, domain.ErrPasswordTooShort)
	_, err = f.svc.Register(ctx, "not-an-email", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	f.db.ExpectBegin()
	f.db.ExpectCommit()
	f.db.ExpectBegin()
	f.db.ExpectRollback()
	_, err = f.svc.Register(ctx, "dup@example.com", "secret1")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "DUP@example.com", "secret1")
	assert.ErrorIs(t, err, store.ErrEmailExists)
	assert.Len(t, f.mailer.Messages(), 1)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	f := newUserFixture(t)
	f.mailer.SendFn = func(context.Context, mailer.Message) error { return errors.New("smtp down") }
	f.expectTx(1)

	_, err := f.svc.Register(context.Background(), "a@example.com", "secret1")
	assert.NoError(t, err)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	u := f.users.AddUser(&domain.User{ID: uuid.New(), Email: "s@example.com", EmailVerified: true}, "secret1")

	pair, err := f.svc.Login(ctx, u.Email, "secret1")
	require.NoError(t, err)

	next, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRevokedToken, "a rotated refresh token is single use")

	_, err = f.svc.Refresh(ctx, next.AccessToken)
	assert.ErrorIs(t, err, auth.ErrWrongTokenType)

	access, err := f.tokens.ValidateToken(ctx, next.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, access, next.RefreshToken))

	revoked, _ := f.revoker.IsRevoked(ctx, access.ID)
	assert.True(t, revoked)
	_, err = f.svc.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRevokedToken)

	assert.ErrorIs(t, f.svc.Logout(ctx, nil, ""), auth.ErrMissingToken)
}

func TestPasswordReset(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	u := f.users.AddUser(&domain.User{ID: uuid.New(), Email: "s@example.com"}, "secret1")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, f.mailer.Messages(), "unknown addresses get no email")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "S@example.com"))
	token := f.lastToken(t)

	err := f.svc.ResetPassword(ctx, token, "newpass1", "newpass2")
	assert.ErrorIs(t, err, domain.ErrPasswordMismatch)
	err = f.svc.ResetPassword(ctx, token, "abc", "abc")
	assert.ErrorIs(t, err, domain.ErrPasswordTooShort)

	f.db.ExpectBegin()
	f.db.ExpectCommit()
	require.NoError(t, f.svc.ResetPassword(ctx, token, "newpass1", "newpass1"))

	f.db.ExpectBegin()
	f.db.ExpectRollback()
	err = f.svc.ResetPassword(ctx, token, "another1", "another1")
	assert.ErrorIs(t, err, service.ErrStaleResetToken)

	_, err = f.svc.Login(ctx, u.Email, "secret1")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, u.Email, "newpass1")
	assert.NoError(t, err, "reset verifies the address")
	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestSetPassword(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	u := f.users.AddUser(&domain.User{ID: uuid.New(), Email: "s@example.com"}, "secret1")

	err := f.svc.SetPassword(ctx, u.Email, "newpass1", "newpass2")
	assert.ErrorIs(t, err, domain.ErrPasswordMismatch)

	f.db.ExpectBegin()
	f.db.ExpectRollback()
	err = f.svc.SetPassword(ctx, "nobody@example.com", "newpass1", "newpass1")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	f.db.ExpectBegin()
	f.db.ExpectCommit()
	require.NoError(t, f.svc.SetPassword(ctx, "S@example.com", "newpass1", "newpass1"))

	_, err = f.svc.Login(ctx, u.Email, "newpass1")
	assert.NoError(t, err, "an operator reset also verifies the address")
	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestAdminListings(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	day := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	admin := f.users.AddUser(&domain.User{ID: uuid.New(), Email: adminEmail, EmailVerified: true, CreatedAt: day}, "")
	student := f.users.AddUser(&domain.User{ID: uuid.New(), Email: "s@example.com", CreatedAt: day.AddDate(0, 0, 1)}, "")

	isAdmin, err := f.svc.IsAdmin(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
	isAdmin, err = f.svc.IsAdmin(ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, isAdmin)
	_, err = f.svc.IsAdmin(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportUsersCSV(ctx, &buf))
	assert.Equal(t,
		"Email,Signup Date,Email Verified\ns@example.com,2024-05-07,No\nadmin@example.com,2024-05-06,Yes\n",
		buf.String())

	emails, err := f.svc.EmailList(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s@example.com\nadmin@example.com", emails)
}

func TestLoginWithExpectations(t *testing.T) {
	users := &mocks.TestifyMockUserStore{}
	verifier := &mocks.MockPasswordVerifier{Accept: []string{"secret1"}}
	user := &domain.User{ID: uuid.New(), Email: "s@example.com", HashedPassword: "hash", EmailVerified: true}
	users.On("GetByEmail", mock.Anything, "s@example.com").Return(user, nil).Once()

	svc := service.NewUserService(users, nil, auth.NewMockJWTService(), verifier,
		mocks.NewMockTokenRevoker(), &mocks.MockMailer{}, adminEmail, discardLogger())

	pair, err := svc.Login(context.Background(), "s@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "mock-jwt-token", pair.AccessToken)
	assert.Equal(t, "mock-jwt-token-refresh", pair.RefreshToken)
	require.Len(t, verifier.Checks, 1)
	assert.Equal(t, mocks.PasswordCheck{Hash: "hash", Password: "secret1"}, verifier.Checks[0])
	users.AssertExpectations(t)

	users.On("GetByEmail", mock.Anything, "s@example.com").Return(user, nil).Once()
	_, err = svc.Login(context.Background(), "s@example.com", "wrong-secret")
	assert.Error(t, err)
	assert.Len(t, verifier.Checks, 2)

	users.On("GetByEmail", mock.Anything, "down@example.com").Return(nil, errors.New("db down")).Once()
	_, err = svc.Login(context.Background(), "down@example.com", "secret1")
	var svcErr *service.ServiceError
	assert.ErrorAs(t, err, &svcErr)
}
