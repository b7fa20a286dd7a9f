package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippets-api/internal/apperror"
	"github.com/sakif/snippets-api/internal/auth"
	"github.com/sakif/snippets-api/internal/pagination"
	"github.com/sakif/snippets-api/internal/policy"
	"github.com/sakif/snippets-api/internal/serializer"
	"github.com/sakif/snippets-api/internal/service"
)

// CallerResolver turns the user ID the auth middleware put on the request
// into the identity the access policy works with. *service.AuthService
// implements it.
type CallerResolver interface {
	CallerFor(ctx context.Context, userID string) (policy.Caller, error)
}

// SnippetHandler serves the snippet collection, items and their highlight page.
//
// The handler only speaks HTTP: it parses the id, reads the body, resolves the
// caller and renders the result. Every decision about who may do what lives in
// SnippetService.
type SnippetHandler struct {
	snippets *service.SnippetService
	callers  CallerResolver
	base     BaseURL
	logger   *slog.Logger
}

// NewSnippetHandler creates a new SnippetHandler.
func NewSnippetHandler(snippets *service.SnippetService, callers CallerResolver, base BaseURL, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{
		snippets: snippets,
		callers:  callers,
		base:     base,
		logger:   logger,
	}
}

// HandleList returns one page of snippets, newest first.
//
// HTTP: GET /snippets/?page=N
//
// RESPONSE FORMAT:
//
//	{"count": 15, "next": ".../snippets/?page=2", "previous": null, "results": [...]}
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.ParseRequest(r.URL.Query())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	snippets, count, err := h.snippets.List(r.Context(), page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	base := h.base.For(r)
	writeJSON(w, http.StatusOK, pagination.New(
		page, count,
		serializer.ToExternalList(snippets, base),
		h.base.pageURL(r, "/snippets/"),
		r.URL.Query(),
	))
}

// HandleCreate stores a new snippet owned by the caller.
//
// HTTP: POST /snippets/
// REQUEST BODY: {"title": "", "code": "print(1)", "linenos": false, "language": "python", "style": "friendly"}
// Only code is required.
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	caller, err := h.caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	snippet, err := h.snippets.Create(r.Context(), caller, body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	location := serializer.SnippetURL(h.base.For(r), snippet.ID)
	w.Header().Set("Location", location)
	writeJSON(w, http.StatusCreated, serializer.ToExternal(snippet, h.base.For(r)))
}

// HandleGetByID returns a single snippet.
//
// HTTP: GET /snippets/{id}/
func (h *SnippetHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := snippetID(w, r)
	if !ok {
		return
	}

	snippet, err := h.snippets.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, serializer.ToExternal(snippet, h.base.For(r)))
}

// HandleUpdate replaces the writable fields of a snippet.
//
// HTTP: PUT /snippets/{id}/
// code is required; optional fields left out keep their stored values.
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// HandlePatch changes only the fields present in the body.
//
// HTTP: PATCH /snippets/{id}/
func (h *SnippetHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *SnippetHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	id, ok := snippetID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	caller, err := h.caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	snippet, err := h.snippets.Update(r.Context(), caller, id, body, partial)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, serializer.ToExternal(snippet, h.base.For(r)))
}

// HandleDelete removes a snippet.
//
// HTTP: DELETE /snippets/{id}/
// Success is 204 No Content with an empty body.
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := snippetID(w, r)
	if !ok {
		return
	}
	caller, err := h.caller(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.snippets.Delete(r.Context(), caller, id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleHighlight serves the stored highlighted HTML as a page of its own.
//
// HTTP: GET /snippets/{id}/highlight/
// The body is the stored document byte for byte, not JSON.
func (h *SnippetHandler) HandleHighlight(w http.ResponseWriter, r *http.Request) {
	id, ok := snippetID(w, r)
	if !ok {
		return
	}

	html, err := h.snippets.Highlight(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(html)); err != nil {
		h.logger.Warn("failed to write highlight page", slog.Int64("id", id), slog.String("error", err.Error()))
	}
}

func (h *SnippetHandler) caller(r *http.Request) (policy.Caller, error) {
	userID, _ := auth.UserIDFromContext(r.Context())
	return h.callers.CallerFor(r.Context(), userID)
}

// snippetID parses the {id} URL parameter. Anything that is not a positive
// integer cannot name a snippet, so it is a 404 rather than a 400.
func snippetID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: apperror.MsgNotFound})
		return 0, false
	}
	return id, true
}
