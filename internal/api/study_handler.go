package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/api/shared"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/service"
	"github.com/phrazzld/cramdeck/internal/service/study"
)

// StudySessions is the part of the study service the handler drives.
type StudySessions interface {
	NewSession(ctx context.Context, userID uuid.UUID, scope study.Scope) (study.View, error)
	View(userID uuid.UUID) (study.View, error)
	Apply(ctx context.Context, userID uuid.UUID, action study.Action) (study.View, error)
	End(userID uuid.UUID) error
	Missed(ctx context.Context, userID, subjectID uuid.UUID) ([]domain.Flashcard, error)
	ClearMissed(ctx context.Context, userID uuid.UUID) error
}

var _ StudySessions = (*study.Service)(nil)

// StudyHandler serves the study session, missed-card and mastery endpoints.
type StudyHandler struct {
	sessions StudySessions
	mastery  service.MasteryService
	logger   *slog.Logger
}

// NewStudyHandler creates a StudyHandler.
func NewStudyHandler(sessions StudySessions, mastery service.MasteryService, logger *slog.Logger) *StudyHandler {
	if logger == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("logger cannot be nil for StudyHandler")
	}
	return &StudyHandler{
		sessions: sessions,
		mastery:  mastery,
		logger:   logger.With(slog.String("component", "study_handler")),
	}
}

func (h *StudyHandler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
}

// CreateSession handles POST /study/session. Any existing session for the
// user is replaced.
func (h *StudyHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req StudySessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.sessions.NewSession(r.Context(), userID, study.Scope{
		Mode:       study.Mode(req.Mode),
		SubjectID:  req.SubjectID,
		SubtopicID: req.SubtopicID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create study session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, view)
}

// GetSession handles GET /study/session.
func (h *StudyHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	view, err := h.sessions.View(userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load study session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// ApplyAction handles POST /study/session/{action}.
func (h *StudyHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	action, ok := study.ParseAction(chi.URLParam(r, "action"))
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "Unknown study action")
		return
	}

	view, err := h.sessions.Apply(r.Context(), userID, action)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update study session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// EndSession handles DELETE /study/session.
func (h *StudyHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.End(userID); err != nil {
		HandleAPIError(w, r, err, "Failed to end study session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMissed handles GET /study/missed[?subject_id=].
func (h *StudyHandler) ListMissed(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	subjectID, err := getQueryUUID(r, "subject_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	cards, err := h.sessions.Missed(r.Context(), userID, subjectID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list missed cards")
		return
	}
	out := make([]FlashcardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, flashcardToResponse(c))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// ClearMissed handles DELETE /study/missed.
func (h *StudyHandler) ClearMissed(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.ClearMissed(r.Context(), userID); err != nil {
		HandleAPIError(w, r, err, "Failed to clear missed cards")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Mastery handles GET /mastery.
func (h *StudyHandler) Mastery(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	summary, err := h.mastery.Summary(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load mastery")
		return
	}
	out := make([]MasteryResponse, 0, len(summary))
	for _, s := range summary {
		out = append(out, MasteryResponse{SubjectMastery: s, Percent: s.Percent()})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}
