package api

import (
	"errors"
	"fmt"
	"net/http"

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
)

const msgUnexpected = "An unexpected error occurred"

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the error types themselves.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	case err == nil:
		return http.StatusOK

	// Authentication
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrRevokedToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization
	case errors.Is(err, service.ErrEmailNotVerified),
		errors.Is(err, service.ErrNotOwned),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, study.ErrNoSession):
		return http.StatusNotFound

	// Conflicts with stored or session state
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrReferenced),
		errors.Is(err, store.ErrDisplayOrderUnsupported),
		errors.Is(err, study.ErrSuperseded),
		errors.Is(err, studysession.ErrNotStarted),
		errors.Is(err, studysession.ErrNotInProgress),
		errors.Is(err, studysession.ErrNotComplete),
		errors.Is(err, studysession.ErrNoMissedCards),
		errors.Is(err, domain.ErrEssayBusy):
		return http.StatusConflict

	case errors.Is(err, study.ErrNoFlashcards):
		return http.StatusUnprocessableEntity

	case errors.Is(err, filestore.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, filestore.ErrUnsupportedFileType),
		errors.Is(err, filestore.ErrInvalidPDF):
		return http.StatusUnsupportedMediaType

	// Bad requests
	case errors.Is(err, studysession.ErrDuplicateCard),
		errors.Is(err, domain.ErrValidation),
		errors.As(err, &validationErrs),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, study.ErrInvalidScope),
		errors.Is(err, service.ErrInvalidOrder),
		errors.Is(err, service.ErrSubtopicMismatch),
		errors.Is(err, service.ErrStaleResetToken),
		errors.Is(err, deckfile.ErrInvalidDeck),
		errors.Is(err, filestore.ErrEmptyFile),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrGradingNotConfigured):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err. Internal
// details never reach the client.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return msgUnexpected
	}

	var validationErr *domain.ValidationError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"
	case errors.Is(err, auth.ErrRevokedToken):
		return "Token revoked"
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"

	case errors.Is(err, service.ErrEmailNotVerified):
		return "Email address has not been verified"
	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this essay"
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, domain.ErrForbidden):
		return "Administrator access required"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrSubjectNotFound):
		return "Subject not found"
	case errors.Is(err, store.ErrSubtopicNotFound):
		return "Subtopic not found"
	case errors.Is(err, store.ErrFlashcardNotFound):
		return "Flashcard not found"
	case errors.Is(err, store.ErrEssayNotFound):
		return "Essay not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, study.ErrNoSession):
		return "No active study session"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"
	case errors.Is(err, store.ErrSubjectNameExists):
		return "A subject with this name already exists"
	case errors.Is(err, store.ErrDuplicate):
		return "Already exists"
	case errors.Is(err, store.ErrReferenced):
		return "Still in use by other records"
	case errors.Is(err, store.ErrDisplayOrderUnsupported):
		return store.ErrDisplayOrderUnsupported.Error()
	case errors.Is(err, study.ErrSuperseded):
		return "Superseded by a newer selection"
	case errors.Is(err, studysession.ErrNotStarted),
		errors.Is(err, studysession.ErrNotInProgress),
		errors.Is(err, studysession.ErrNotComplete):
		return "Action not allowed in the current session state"
	case errors.Is(err, studysession.ErrNoMissedCards):
		return "No missed cards to review"
	case errors.Is(err, domain.ErrEssayBusy):
		return "Essay is already being graded"

	case errors.Is(err, study.ErrNoFlashcards):
		return "No flashcards found for this selection."
	case errors.Is(err, studysession.ErrDuplicateCard):
		return "The selection lists the same card more than once"

	case errors.Is(err, filestore.ErrFileTooLarge):
		return "File too large"
	case errors.Is(err, filestore.ErrUnsupportedFileType):
		return "Unsupported file type; upload a JPEG, PNG, WebP or PDF"
	case errors.Is(err, filestore.ErrInvalidPDF):
		return "File is not a readable PDF"
	case errors.Is(err, filestore.ErrEmptyFile):
		return "File is empty"

	case errors.As(err, &validationErr):
		return fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(validationErrs)
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, study.ErrInvalidScope):
		return "Invalid study selection"
	case errors.Is(err, service.ErrInvalidOrder):
		return "Order must list every item exactly once"
	case errors.Is(err, service.ErrSubtopicMismatch):
		return "Subtopic does not belong to the subject"
	case errors.Is(err, service.ErrStaleResetToken):
		return "Reset link has already been used"
	case errors.Is(err, deckfile.ErrInvalidDeck):
		return "Invalid deck file"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Validation error"

	case errors.Is(err, service.ErrGradingNotConfigured):
		return "Essay grading is not configured"

	default:
		return msgUnexpected
	}
}

// SanitizeValidationError turns validator output into a message naming the
// first failing field.
func SanitizeValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "Validation error"
	}
	fe := errs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), validationTagMessage(fe.Tag()))
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "eqfield":
		return "does not match"
	default:
		return "validation failed"
	}
}

// HandleAPIError maps err to a status and safe message and writes it.
// fallback replaces the generic message for unmapped errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		msg = fallback
	}
	var opts []shared.ResponseOption
	if status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}
