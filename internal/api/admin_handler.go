package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/cramdeck/internal/api/shared"
	"github.com/phrazzld/cramdeck/internal/export"
	"github.com/phrazzld/cramdeck/internal/service"
)

// AdminHandler serves the user listings for the administrator.
type AdminHandler struct {
	users  service.UserService
	logger *slog.Logger
	now    func() time.Time
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(users service.UserService, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("logger cannot be nil for AdminHandler")
	}
	return &AdminHandler{
		users:  users,
		logger: logger.With(slog.String("component", "admin_handler")),
		now:    time.Now,
	}
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list users")
		return
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userToResponse(&users[i]))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// ExportUsersCSV handles GET /admin/users/export.csv.
func (h *AdminHandler) ExportUsersCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.users.ExportUsersCSV(r.Context(), &buf); err != nil {
		HandleAPIError(w, r, err, "Failed to export users")
		return
	}
	shared.RespondWithText(w, r, "text/csv; charset=utf-8", export.UsersCSVFilename(h.now()), buf.Bytes())
}

// EmailList handles GET /admin/users/emails.
func (h *AdminHandler) EmailList(w http.ResponseWriter, r *http.Request) {
	emails, err := h.users.EmailList(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list emails")
		return
	}
	shared.RespondWithText(w, r, "text/plain; charset=utf-8", "", []byte(emails))
}
