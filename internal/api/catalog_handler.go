package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/api/shared"
	"github.com/phrazzld/cramdeck/internal/deckfile"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/service"
)

// MaxDeckBytes bounds an uploaded deck file.
const MaxDeckBytes = 4 << 20

// CatalogHandler serves subject, subtopic and flashcard endpoints. The
// listing endpoints are open to every user; the rest sit behind the admin
// middleware.
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *slog.Logger
	now     func() time.Time
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalog service.CatalogService, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("logger cannot be nil for CatalogHandler")
	}
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger.With(slog.String("component", "catalog_handler")),
		now:     time.Now,
	}
}

func (h *CatalogHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

// ListSubjects handles GET /subjects.
func (h *CatalogHandler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.catalog.ListSubjects(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list subjects")
		return
	}
	if subjects == nil {
		subjects = []domain.Subject{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, subjects)
}

// CreateSubject handles POST /admin/subjects.
func (h *CatalogHandler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	subject, err := h.catalog.CreateSubject(r.Context(), req.Name)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create subject")
		return
	}
	h.log(r).Info("subject created", slog.String("subject_id", subject.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, subject)
}

// RenameSubject handles PATCH /admin/subjects/{id}.
func (h *CatalogHandler) RenameSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}
	var req NameRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.catalog.RenameSubject(r.Context(), id, req.Name); err != nil {
		HandleAPIError(w, r, err, "Failed to rename subject")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSubject handles DELETE /admin/subjects/{id}.
func (h *CatalogHandler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.catalog.DeleteSubject, "Failed to delete subject")
}

// ListSubtopics handles GET /subjects/{id}/subtopics.
func (h *CatalogHandler) ListSubtopics(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}
	subtopics, err := h.catalog.ListSubtopics(r.Context(), subjectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list subtopics")
		return
	}
	out := make([]SubtopicResponse, 0, len(subtopics))
	for _, st := range subtopics {
		out = append(out, subtopicToResponse(st))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// CreateSubtopic handles POST /admin/subjects/{id}/subtopics.
func (h *CatalogHandler) CreateSubtopic(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}
	var req NameRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	subtopic, err := h.catalog.CreateSubtopic(r.Context(), subjectID, req.Name)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create subtopic")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, subtopicToResponse(*subtopic))
}

// RenameSubtopic handles PATCH /admin/subtopics/{id}.
func (h *CatalogHandler) RenameSubtopic(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}
	var req NameRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.catalog.RenameSubtopic(r.Context(), id, req.Name); err != nil {
		HandleAPIError(w, r, err, "Failed to rename subtopic")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSubtopic handles DELETE /admin/subtopics/{id}.
func (h *CatalogHandler) DeleteSubtopic(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.catalog.DeleteSubtopic, "Failed to delete subtopic")
}

// MoveSubtopic handles POST /admin/subtopics/{id}/move.
func (h *CatalogHandler) MoveSubtopic(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.catalog.MoveSubtopic, "Failed to move subtopic")
}

// ReorderSubtopics handles PUT /admin/subjects/{id}/subtopics/order.
func (h *CatalogHandler) ReorderSubtopics(w http.ResponseWriter, r *http.Request) {
	h.reorder(w, r, h.catalog.ReorderSubtopics, "Failed to reorder subtopics")
}

// ListFlashcards handles GET /admin/flashcards. subject_id, subtopic_id and
// search narrow the result.
func (h *CatalogHandler) ListFlashcards(w http.ResponseWriter, r *http.Request) {
	subjectID, err := getQueryUUID(r, "subject_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	subtopicID, err := getQueryUUID(r, "subtopic_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	cards, err := h.catalog.ListFlashcards(r.Context(), service.FlashcardQuery{
		SubjectID:  subjectID,
		SubtopicID: subtopicID,
		Search:     r.URL.Query().Get("search"),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list flashcards")
		return
	}
	out := make([]FlashcardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, flashcardToResponse(c))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// GetFlashcard handles GET /admin/flashcards/{id}.
func (h *CatalogHandler) GetFlashcard(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}
	card, err := h.catalog.GetFlashcard(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load flashcard")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, flashcardToResponse(*card))
}

// CreateFlashcard handles POST /admin/flashcards.
func (h *CatalogHandler) CreateFlashcard(w http.ResponseWriter, r *http.Request) {
	var req FlashcardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	card, err := h.catalog.CreateFlashcard(r.Context(), flashcardInput(req))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create flashcard")
		return
	}
	h.log(r).Info("flashcard created", slog.String("card_id", card.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, flashcardToResponse(*card))
}

// UpdateFlashcard handles PUT /admin/flashcards/{id}.
func (h *CatalogHandler) UpdateFlashcard(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}
	var req FlashcardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	card, err := h.catalog.UpdateFlashcard(r.Context(), id, flashcardInput(req))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update flashcard")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, flashcardToResponse(*card))
}

// DeleteFlashcard handles DELETE /admin/flashcards/{id}.
func (h *CatalogHandler) DeleteFlashcard(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.catalog.DeleteFlashcard, "Failed to delete flashcard")
}

// MoveFlashcard handles POST /admin/flashcards/{id}/move.
func (h *CatalogHandler) MoveFlashcard(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.catalog.MoveFlashcard, "Failed to move flashcard")
}

// ReorderFlashcards handles PUT /admin/subtopics/{id}/flashcards/order.
func (h *CatalogHandler) ReorderFlashcards(w http.ResponseWriter, r *http.Request) {
	h.reorder(w, r, h.catalog.ReorderFlashcards, "Failed to reorder flashcards")
}

// ExportFlashcards handles GET /admin/flashcards/export.
func (h *CatalogHandler) ExportFlashcards(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.catalog.ExportText(r.Context(), &buf); err != nil {
		HandleAPIError(w, r, err, "Failed to export flashcards")
		return
	}
	filename := "flashcards-" + h.now().UTC().Format("2006-01-02") + ".txt"
	shared.RespondWithText(w, r, "text/plain; charset=utf-8", filename, buf.Bytes())
}

// ImportDeck handles POST /admin/import with a YAML deck file as the body.
func (h *CatalogHandler) ImportDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := deckfile.Parse(http.MaxBytesReader(w, r.Body, MaxDeckBytes))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid deck file", err)
		return
	}
	res, err := h.catalog.ImportDeck(r.Context(), deck)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to import deck")
		return
	}
	h.log(r).Info("deck imported",
		slog.Int("subjects", res.Subjects),
		slog.Int("subtopics", res.Subtopics),
		slog.Int("cards", res.Cards))
	shared.RespondWithJSON(w, r, http.StatusCreated, ImportResponse(res))
}

func flashcardInput(req FlashcardRequest) service.FlashcardInput {
	return service.FlashcardInput{
		SubjectID:  req.SubjectID,
		SubtopicID: req.SubtopicID,
		Front:      req.Front,
		Back:       req.Back,
	}
}

func (h *CatalogHandler) deleteByID(
	w http.ResponseWriter,
	r *http.Request,
	del func(context.Context, uuid.UUID) error,
	fallback string,
) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := del(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, fallback)
		return
	}
	h.log(r).Info("catalog item deleted", slog.String("id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) move(
	w http.ResponseWriter,
	r *http.Request,
	move func(context.Context, uuid.UUID, service.Direction) error,
	fallback string,
) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}
	var req MoveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	dir, _ := service.ParseDirection(req.Direction)
	if err := move(r.Context(), id, dir); err != nil {
		HandleAPIError(w, r, err, fallback)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) reorder(
	w http.ResponseWriter,
	r *http.Request,
	reorder func(context.Context, uuid.UUID, []uuid.UUID) error,
	fallback string,
) {
	parentID, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}
	var req ReorderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := reorder(r.Context(), parentID, req.IDs); err != nil {
		HandleAPIError(w, r, err, fallback)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
