// Package service holds the business rules between the HTTP handlers and the
// repositories:
//
//	Handler (HTTP) → Service (authorise, validate, orchestrate) → Repository (SQL)
//
// Services return apperror kinds and never see an http.Request. The createuser
// command in cmd/server goes through the same AuthService the handlers use.
//
// THE CALLER IS A PARAMETER:
// Every write method takes a policy.Caller argument. The service never digs the
// current user out of a context.Context; the handler resolves it once and passes
// it in, so the permission rules can be tested with plain values.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/snippets-api/internal/apperror"
	"github.com/sakif/snippets-api/internal/model"
	"github.com/sakif/snippets-api/internal/pagination"
	"github.com/sakif/snippets-api/internal/policy"
	"github.com/sakif/snippets-api/internal/repository"
	"github.com/sakif/snippets-api/internal/serializer"
)

// Write operations reported to a WriteRecorder.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// WriteRecorder is notified after every successful snippet write.
// The metrics package implements it with a Prometheus counter.
type WriteRecorder interface {
	SnippetWritten(op string)
}

type noopRecorder struct{}

func (noopRecorder) SnippetWritten(string) {}

// SnippetService handles business logic for code snippets.
//
// STRUCT FIELDS:
// - repo: the database interface (injected, not created here)
// - logger: for structured logging of business events
// - writes: observes successful writes (metrics); never nil
type SnippetService struct {
	repo   repository.SnippetRepository
	logger *slog.Logger
	writes WriteRecorder
}

// NewSnippetService creates a new SnippetService. writes may be nil.
func NewSnippetService(repo repository.SnippetRepository, logger *slog.Logger, writes WriteRecorder) *SnippetService {
	if writes == nil {
		writes = noopRecorder{}
	}
	return &SnippetService{
		repo:   repo,
		logger: logger,
		writes: writes,
	}
}

// List returns one page of snippets, newest first, plus the total count.
//
// The count is read before the page so a request for a page past the end is
// rejected with "Invalid page." instead of returning an empty list. An empty
// store still has a valid (empty) page 1.
func (s *SnippetService) List(ctx context.Context, page pagination.Request) ([]model.Snippet, int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count snippets", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("counting snippets: %w", err)
	}
	if err := page.Check(count); err != nil {
		return nil, 0, err
	}

	snippets, err := s.repo.List(ctx, repository.ListOptions{
		Limit:  page.Limit(),
		Offset: page.Offset(),
	})
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("listing snippets: %w", err)
	}

	return snippets, count, nil
}

// Get retrieves a snippet by its ID. Reading is public, so there is no caller.
// Returns apperror.ErrNotFound if the snippet doesn't exist.
func (s *SnippetService) Get(ctx context.Context, id int64) (*model.Snippet, error) {
	// NotFound is a normal outcome and is not logged; the repository already
	// returns a proper apperror for it.
	return s.repo.GetByID(ctx, id)
}

// Highlight returns the stored pre-rendered HTML of a snippet, exactly as saved.
func (s *SnippetService) Highlight(ctx context.Context, id int64) (string, error) {
	snippet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return snippet.Highlighted, nil
}

// Create validates body and saves a new snippet owned by caller.
//
// ORDER OF CHECKS:
//  1. The caller must be authenticated. An anonymous request is refused before
//     the body is even parsed, so it always gets the authentication error.
//  2. The body is decoded and validated against the defaults.
//  3. The owner comes from the caller, never from the body.
//
// body is the raw JSON request body. Accepting bytes (not *http.Request) keeps
// the service free of HTTP types.
func (s *SnippetService) Create(ctx context.Context, caller policy.Caller, body []byte) (*model.Snippet, error) {
	if err := policy.Authorize(policy.ActionCreate, nil, caller); err != nil {
		return nil, err
	}

	fields, err := decodeAndApply(body, serializer.DefaultFields(), false)
	if err != nil {
		return nil, err
	}

	snippet := &model.Snippet{OwnerID: caller.UserID}
	fields.ApplyTo(snippet)

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("owner", caller.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.writes.SnippetWritten(OpCreate)
	s.logger.Info("snippet created",
		slog.Int64("id", snippet.ID),
		slog.String("owner", snippet.Owner),
	)

	return snippet, nil
}

// Update modifies an existing snippet.
//
// partial selects PATCH semantics: absent fields keep their stored value. With
// partial == false (PUT) every required field must be present.
//
// ORDER OF CHECKS: authentication → existence → ownership → validation → save.
// Each check runs before anything is written, so a rejected request leaves the
// store untouched.
func (s *SnippetService) Update(ctx context.Context, caller policy.Caller, id int64, body []byte, partial bool) (*model.Snippet, error) {
	if !caller.IsAuthenticated() {
		return nil, apperror.Unauthenticated()
	}

	snippet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(policy.ActionUpdate, snippet, caller); err != nil {
		s.logger.Warn("snippet update refused",
			slog.Int64("id", id),
			slog.String("caller", caller.Username),
		)
		return nil, err
	}

	fields, err := decodeAndApply(body, serializer.FieldsOf(snippet), partial)
	if err != nil {
		return nil, err
	}
	fields.ApplyTo(snippet)

	if err := s.repo.Update(ctx, snippet); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Deleted between the read and the write.
			return nil, err
		}
		s.logger.Error("failed to update snippet",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.writes.SnippetWritten(OpUpdate)
	s.logger.Info("snippet updated",
		slog.Int64("id", snippet.ID),
		slog.Bool("partial", partial),
	)

	return snippet, nil
}

// Delete removes a snippet. Only its owner may do so.
// Returns apperror.ErrNotFound if the snippet doesn't exist.
func (s *SnippetService) Delete(ctx context.Context, caller policy.Caller, id int64) error {
	if !caller.IsAuthenticated() {
		return apperror.Unauthenticated()
	}

	snippet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := policy.Authorize(policy.ActionDelete, snippet, caller); err != nil {
		s.logger.Warn("snippet delete refused",
			slog.Int64("id", id),
			slog.String("caller", caller.Username),
		)
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.writes.SnippetWritten(OpDelete)
	s.logger.Info("snippet deleted", slog.Int64("id", id))
	return nil
}

func decodeAndApply(body []byte, base serializer.Fields, partial bool) (serializer.Fields, error) {
	payload, err := serializer.Decode(body)
	if err != nil {
		return serializer.Fields{}, err
	}
	return payload.Apply(base, partial)
}
