package api

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/phrazzld/cramdeck/internal/api/shared"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/platform/filestore"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/service"
)

// multipartOverhead is allowed on top of the file limit for the form
// boundaries and headers.
const multipartOverhead = 64 << 10

// EssayHandler serves the essay endpoints.
type EssayHandler struct {
	essays   service.EssayService
	maxBytes int64
	logger   *slog.Logger
}

// NewEssayHandler creates an EssayHandler accepting files up to maxBytes.
func NewEssayHandler(essays service.EssayService, maxBytes int64, logger *slog.Logger) *EssayHandler {
	if logger == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("logger cannot be nil for EssayHandler")
	}
	return &EssayHandler{
		essays:   essays,
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "essay_handler")),
	}
}

// Upload handles POST /essays with a multipart "file" field.
func (h *EssayHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			HandleAPIError(w, r, filestore.ErrFileTooLarge, "")
		case errors.Is(err, http.ErrMissingFile):
			shared.RespondWithError(w, r, http.StatusBadRequest, "A file field is required")
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid upload", err)
		}
		return
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	essay, err := h.essays.Upload(r.Context(), userID, header.Filename, file)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to store essay")
		return
	}
	log.Info("essay uploaded",
		slog.String("essay_id", essay.ID.String()),
		slog.Int64("size_bytes", essay.SizeBytes))
	shared.RespondWithJSON(w, r, http.StatusCreated, essay)
}

// List handles GET /essays.
func (h *EssayHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	essays, err := h.essays.List(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list essays")
		return
	}
	if essays == nil {
		essays = []domain.Essay{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, essays)
}

// Get handles GET /essays/{id}.
func (h *EssayHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, essayID, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	essay, err := h.essays.Get(r.Context(), userID, essayID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load essay")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, essay)
}

// Grade handles POST /essays/{id}/grade. The grade is produced in the
// background; the reply carries the essay in its grading state.
func (h *EssayHandler) Grade(w http.ResponseWriter, r *http.Request) {
	userID, essayID, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	essay, err := h.essays.Grade(r.Context(), userID, essayID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to queue grading")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, essay)
}
