// Package repository declares the storage interfaces the service layer depends on.
// The sqlite subpackage is the only production implementation; tests use fakes.
package repository

import (
	"context"

	"github.com/sakif/snippets-api/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// SnippetRepository stores snippets.
//
// Create and Update recompute Snippet.Highlighted before writing; callers never
// set it themselves. List returns newest first.
type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id int64) (*model.Snippet, error)
	List(ctx context.Context, opts ListOptions) ([]model.Snippet, error)
	Count(ctx context.Context) (int, error)
	ListIDsByOwner(ctx context.Context, ownerID string) ([]int64, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id int64) error
}

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	UpsertGitHub(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, error)
	CountUsers(ctx context.Context) (int, error)
}
