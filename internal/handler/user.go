package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippets-api/internal/pagination"
	"github.com/sakif/snippets-api/internal/serializer"
	"github.com/sakif/snippets-api/internal/service"
)

// UserHandler serves the read-only user views.
type UserHandler struct {
	users  *service.UserService
	base   BaseURL
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, base BaseURL, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, base: base, logger: logger}
}

// HandleList returns one page of users with links to their snippets.
//
// HTTP: GET /users/?page=N
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.ParseRequest(r.URL.Query())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	details, count, err := h.users.List(r.Context(), page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	base := h.base.For(r)
	results := make([]serializer.UserResource, 0, len(details))
	for _, d := range details {
		results = append(results, serializer.ToExternalUser(d.User, d.SnippetIDs, base))
	}
	writeJSON(w, http.StatusOK, pagination.New(page, count, results, h.base.pageURL(r, "/users/"), r.URL.Query()))
}

// HandleGetByID returns one user.
//
// HTTP: GET /users/{id}/
func (h *UserHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	detail, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, serializer.ToExternalUser(detail.User, detail.SnippetIDs, h.base.For(r)))
}
