package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/cramdeck/internal/api/middleware"
	"github.com/phrazzld/cramdeck/internal/api/shared"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/redact"
	"github.com/phrazzld/cramdeck/internal/service"
)

// AuthHandler serves the account endpoints.
type AuthHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users service.UserService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("logger cannot be nil for AuthHandler")
	}
	return &AuthHandler{users: users, logger: logger.With(slog.String("component", "auth_handler"))}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).
		Info("user registered", slog.String("user_id", user.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, userToResponse(user))
}

// VerifyEmail handles POST /auth/verify.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.users.VerifyEmail(r.Context(), req.Token); err != nil {
		HandleAPIError(w, r, err, "Failed to verify email")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).
			Debug("login rejected", slog.String("email", redact.Email(req.Email)))
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// RefreshToken handles POST /auth/refresh.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout handles POST /auth/logout. The body is optional.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req LogoutRequest
	if err := shared.DecodeJSON(r, &req); err != nil && !errors.Is(err, shared.ErrEmptyBody) {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.users.Logout(r.Context(), claims, req.RefreshToken); err != nil {
		HandleAPIError(w, r, err, "Failed to log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestPasswordReset handles POST /auth/password-reset. The reply does not
// reveal whether the address has an account.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.users.RequestPasswordReset(r.Context(), req.Email); err != nil {
		HandleAPIError(w, r, err, "Failed to request password reset")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ConfirmPasswordReset handles POST /auth/password-reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.users.ResetPassword(r.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		HandleAPIError(w, r, err, "Failed to reset password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load user")
		return
	}
	isAdmin, err := h.users.IsAdmin(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, struct {
		UserResponse
		IsAdmin bool `json:"is_admin"`
	}{userToResponse(user), isAdmin})
}
