package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/cramdeck/internal/api/shared"
	"github.com/phrazzld/cramdeck/internal/deckfile"
	"github.com/phrazzld/cramdeck/internal/domain"
	studysession "github.com/phrazzld/cramdeck/internal/domain/study"
	"github.com/phrazzld/cramdeck/internal/platform/filestore"
	"github.com/phrazzld/cramdeck/internal/service"
	"github.com/phrazzld/cramdeck/internal/service/auth"
	"github.com/phrazzld/cramdeck/internal/service/study"
	"github.com/phrazzld/cramdeck/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "Invalid token"},
		{"revoked token", auth.ErrRevokedToken, http.StatusUnauthorized, "Token revoked"},
		{"wrong token type", auth.ErrWrongTokenType, http.StatusUnauthorized, "Invalid refresh token"},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"unverified", service.ErrEmailNotVerified, http.StatusForbidden, "Email address has not been verified"},
		{"not owned", service.ErrNotOwned, http.StatusForbidden, "You do not own this essay"},
		{"subject missing", store.ErrSubjectNotFound, http.StatusNotFound, "Subject not found"},
		{"card missing", store.ErrFlashcardNotFound, http.StatusNotFound, "Flashcard not found"},
		{"no session", study.ErrNoSession, http.StatusNotFound, "No active study session"},
		{"duplicate subject", store.ErrSubjectNameExists, http.StatusConflict, "A subject with this name already exists"},
		{"duplicate email", store.ErrEmailExists, http.StatusConflict, "Email already exists"},
		{"order unsupported", store.ErrDisplayOrderUnsupported, http.StatusConflict, "display order is not available; run the migration"},
		{"superseded", study.ErrSuperseded, http.StatusConflict, "Superseded by a newer selection"},
		{"wrong session state", studysession.ErrNotInProgress, http.StatusConflict, "Action not allowed in the current session state"},
		{"perfect round has nothing to review", studysession.ErrNoMissedCards, http.StatusConflict, "No missed cards to review"},
		{"essay busy", domain.ErrEssayBusy, http.StatusConflict, "Essay is already being graded"},
		{"repeated card", fmt.Errorf("%w: 1f0c", studysession.ErrDuplicateCard), http.StatusBadRequest, "The selection lists the same card more than once"},
		{"no flashcards", study.ErrNoFlashcards, http.StatusUnprocessableEntity, "No flashcards found for this selection."},
		{"too large", filestore.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "File too large"},
		{"bad type", filestore.ErrUnsupportedFileType, http.StatusUnsupportedMediaType, "Unsupported file type; upload a JPEG, PNG, WebP or PDF"},
		{"scope", fmt.Errorf("%w: subject mode needs subject_id", study.ErrInvalidScope), http.StatusBadRequest, "Invalid study selection"},
		{"order", service.ErrInvalidOrder, http.StatusBadRequest, "Order must list every item exactly once"},
		{"deck", fmt.Errorf("%w: empty", deckfile.ErrInvalidDeck), http.StatusBadRequest, "Invalid deck file"},
		{"domain validation", domain.NewValidationError("password", "is too short", domain.ErrPasswordTooShort), http.StatusBadRequest, "Invalid password: is too short"},
		{"empty body", shared.ErrEmptyBody, http.StatusBadRequest, "Request body is required"},
		{"grading off", service.ErrGradingNotConfigured, http.StatusServiceUnavailable, "Essay grading is not configured"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantStatus, MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.wantMsg, GetSafeErrorMessage(tc.err))

			wrapped := service.NewServiceError("catalog", "list", tc.err)
			assert.Equal(t, tc.wantStatus, MapErrorToStatusCode(wrapped), "wrapping keeps the mapping")
		})
	}
}

func TestGetSafeErrorMessageNil(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, http.StatusOK, MapErrorToStatusCode(nil))
}

func TestSanitizeValidationError(t *testing.T) {
	type req struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=6"`
	}
	v := validator.New()

	tests := []struct {
		name string
		in   req
		want string
	}{
		{"missing email", req{Password: "secret1"}, "Invalid Email: required field"},
		{"bad email", req{Email: "nope", Password: "secret1"}, "Invalid Email: invalid email format"},
		{"short password", req{Email: "a@b.co", Password: "abc"}, "Invalid Password: too short"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(tc.in)
			assert.Equal(t, tc.want, SanitizeValidationError(err))
			assert.Equal(t, http.StatusBadRequest, MapErrorToStatusCode(err))
		})
	}
	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}

func TestHandleAPIErrorDoesNotLeak(t *testing.T) {
	secret := errors.New("pq: password authentication failed for user cram at postgres://cram:hunter2@db")
	r := httptest.NewRequest(http.MethodGet, "/api/subjects", nil)

	w := httptest.NewRecorder()
	HandleAPIError(w, r, secret, "Failed to list subjects")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to list subjects", errorMessage(t, w))
	assert.False(t, strings.Contains(w.Body.String(), "hunter2"))

	w = httptest.NewRecorder()
	HandleAPIError(w, r, store.ErrSubjectNotFound, "Failed to list subjects")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Subject not found", errorMessage(t, w), "the fallback only replaces unmapped errors")
}
