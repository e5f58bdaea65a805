package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/export"
	"github.com/phrazzld/cramdeck/internal/platform/mailer"
	"github.com/phrazzld/cramdeck/internal/redact"
	"github.com/phrazzld/cramdeck/internal/service/auth"
	"github.com/phrazzld/cramdeck/internal/store"
)

// TokenRevoker remembers token ids that must no longer be accepted.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenPair is issued on login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService covers the account lifecycle and the admin user listings.
type UserService interface {
	// Register creates an unverified account and mails a verification token.
	Register(ctx context.Context, email, password string) (*domain.User, error)
	// VerifyEmail marks the token's account as verified.
	VerifyEmail(ctx context.Context, token string) error
	// Login returns ErrInvalidCredentials for an unknown email or a wrong
	// password, and ErrEmailNotVerified before verification.
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	// Refresh exchanges a refresh token for a new pair. The old refresh
	// token is revoked.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	// Logout revokes the access token and, when given, the refresh token.
	Logout(ctx context.Context, access *auth.Claims, refreshToken string) error
	// RequestPasswordReset mails a reset token when the account exists. It
	// succeeds either way.
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password, confirm string) error
	// SetPassword replaces a password without a token and marks the address
	// verified. It is the operator's recovery path.
	SetPassword(ctx context.Context, email, password, confirm string) error

	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	IsAdmin(ctx context.Context, id uuid.UUID) (bool, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	ExportUsersCSV(ctx context.Context, w io.Writer) error
	EmailList(ctx context.Context) (string, error)
}

// UserServiceImpl implements UserService.
type UserServiceImpl struct {
	userStore  store.UserStore
	db         store.TxBeginner
	tokens     auth.JWTService
	verifier   auth.PasswordVerifier
	revoker    TokenRevoker
	mailer     mailer.Mailer
	adminEmail string
	logger     *slog.Logger
}

// NewUserService creates a UserService. adminEmail may be empty, in which
// case nobody is an administrator.
func NewUserService(
	userStore store.UserStore,
	db store.TxBeginner,
	tokens auth.JWTService,
	verifier auth.PasswordVerifier,
	revoker TokenRevoker,
	m mailer.Mailer,
	adminEmail string,
	logger *slog.Logger,
) UserService {
	return &UserServiceImpl{
		userStore:  userStore,
		db:         db,
		tokens:     tokens,
		verifier:   verifier,
		revoker:    revoker,
		mailer:     m,
		adminEmail: adminEmail,
		logger:     logger.With("component", "user_service"),
	}
}

func (s *UserServiceImpl) Register(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := domain.NewUser(email, password)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("registration with existing email", "email", redact.Email(user.Email))
		} else {
			s.logger.Error("failed to save user", "error", redact.Error(err))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	s.sendVerification(ctx, user)
	return user, nil
}

// sendVerification mails a verification token. Failures are logged; the
// account exists either way and a reset also verifies the address.
func (s *UserServiceImpl) sendVerification(ctx context.Context, user *domain.User) {
	token, err := s.tokens.GenerateVerifyToken(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to generate verify token", "user_id", user.ID, "error", err)
		return
	}
	msg := mailer.Message{
		To:      user.Email,
		Subject: "Confirm your email address",
		Body:    "Use this token to confirm your email address:\n\n" + token + "\n",
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send verification email", "user_id", user.ID, "error", redact.Error(err))
	}
}

func (s *UserServiceImpl) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateVerifyToken(ctx, token)
	if err != nil {
		return err
	}
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)
		user, err := txStore.GetByID(ctx, claims.UserID)
		if err != nil {
			return fmt.Errorf("failed to retrieve user for verification: %w", err)
		}
		if user.EmailVerified {
			return nil
		}
		user.EmailVerified = true
		user.UpdatedAt = time.Now().UTC()
		if err := txStore.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to verify user: %w", err)
		}
		s.logger.Info("email verified", "user_id", user.ID)
		return nil
	})
}

func (s *UserServiceImpl) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("login for unknown email", "email", redact.Email(email))
			return nil, ErrInvalidCredentials
		}
		return nil, NewServiceError("user", "login", err)
	}
	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		s.logger.Debug("login with wrong password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return s.issue(ctx, user.ID)
}

func (s *UserServiceImpl) issue(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
	access, err := s.tokens.GenerateToken(ctx, userID)
	if err != nil {
		return nil, NewServiceError("user", "issue tokens", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(ctx, userID)
	if err != nil {
		return nil, NewServiceError("user", "issue tokens", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *UserServiceImpl) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, NewServiceError("user", "refresh", err)
	}
	if revoked {
		return nil, auth.ErrRevokedToken
	}
	if _, err := s.userStore.GetByID(ctx, claims.UserID); err != nil {
		return nil, NewServiceError("user", "refresh", err)
	}

	pair, err := s.issue(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		s.logger.Warn("failed to revoke rotated refresh token", "user_id", claims.UserID, "error", redact.Error(err))
	}
	return pair, nil
}

func (s *UserServiceImpl) Logout(ctx context.Context, access *auth.Claims, refreshToken string) error {
	if access == nil {
		return auth.ErrMissingToken
	}
	if err := s.revoker.Revoke(ctx, access.ID, access.ExpiresAt); err != nil {
		return NewServiceError("user", "logout", err)
	}
	if refreshToken != "" {
		// A refresh token that no longer validates cannot be used anyway.
		if claims, err := s.tokens.ValidateRefreshToken(ctx, refreshToken); err == nil && claims.UserID == access.UserID {
			if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
				return NewServiceError("user", "logout", err)
			}
		}
	}
	s.logger.Info("user logged out", "user_id", access.UserID)
	return nil
}

func (s *UserServiceImpl) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("password reset for unknown email", "email", redact.Email(email))
		} else {
			s.logger.Error("password reset lookup failed", "error", redact.Error(err))
		}
		return nil
	}

	token, err := s.tokens.GenerateResetToken(ctx, user.ID, auth.PasswordFingerprint(user.HashedPassword))
	if err != nil {
		s.logger.Error("failed to generate reset token", "user_id", user.ID, "error", err)
		return nil
	}
	msg := mailer.Message{
		To:      user.Email,
		Subject: "Reset your password",
		Body:    "Use this token to choose a new password:\n\n" + token + "\n\nIgnore this message if you did not ask for a reset.\n",
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send reset email", "user_id", user.ID, "error", redact.Error(err))
	}
	return nil
}

func (s *UserServiceImpl) ResetPassword(ctx context.Context, token, password, confirm string) error {
	if err := domain.ValidatePasswordChange(password, confirm); err != nil {
		return err
	}
	claims, err := s.tokens.ValidateResetToken(ctx, token)
	if err != nil {
		return err
	}

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)
		user, err := txStore.GetByID(ctx, claims.UserID)
		if err != nil {
			return fmt.Errorf("failed to retrieve user for password reset: %w", err)
		}
		if auth.PasswordFingerprint(user.HashedPassword) != claims.Fingerprint {
			return ErrStaleResetToken
		}
		user.Password = password
		// Receiving the token proves the address.
		user.EmailVerified = true
		user.UpdatedAt = time.Now().UTC()
		if err := txStore.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user password: %w", err)
		}
		s.logger.Info("password reset", "user_id", user.ID)
		return nil
	})
}

func (s *UserServiceImpl) SetPassword(ctx context.Context, email, password, confirm string) error {
	if err := domain.ValidatePasswordChange(password, confirm); err != nil {
		return err
	}
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)
		user, err := txStore.GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to retrieve user: %w", err)
		}
		user.Password = password
		user.EmailVerified = true
		user.UpdatedAt = time.Now().UTC()
		if err := txStore.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user password: %w", err)
		}
		s.logger.Info("password set by operator", "user_id", user.ID)
		return nil
	})
}

func (s *UserServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

func (s *UserServiceImpl) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(s.adminEmail), nil
}

func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.userStore.List(ctx)
	if err != nil {
		return nil, NewServiceError("user", "list", err)
	}
	return users, nil
}

func (s *UserServiceImpl) ExportUsersCSV(ctx context.Context, w io.Writer) error {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}
	return export.UsersCSV(w, users)
}

func (s *UserServiceImpl) EmailList(ctx context.Context) (string, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return "", err
	}
	return export.EmailList(users), nil
}
