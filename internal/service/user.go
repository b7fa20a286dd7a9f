package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/snippets-api/internal/model"
	"github.com/sakif/snippets-api/internal/pagination"
	"github.com/sakif/snippets-api/internal/repository"
)

// UserDetail is a user together with the IDs of the snippets they own.
type UserDetail struct {
	User       *model.User
	SnippetIDs []int64
}

// UserService backs the read-only /users/ views.
type UserService struct {
	users    repository.UserRepository
	snippets repository.SnippetRepository
	logger   *slog.Logger
}

func NewUserService(users repository.UserRepository, snippets repository.SnippetRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, snippets: snippets, logger: logger}
}

// List returns one page of users ordered by username, plus the total count.
func (s *UserService) List(ctx context.Context, page pagination.Request) ([]UserDetail, int, error) {
	count, err := s.users.CountUsers(ctx)
	if err != nil {
		s.logger.Error("failed to count users", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}
	if err := page.Check(count); err != nil {
		return nil, 0, err
	}

	users, err := s.users.ListUsers(ctx, repository.ListOptions{
		Limit:  page.Limit(),
		Offset: page.Offset(),
	})
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}

	details := make([]UserDetail, 0, len(users))
	for i := range users {
		ids, err := s.snippets.ListIDsByOwner(ctx, users[i].ID)
		if err != nil {
			return nil, 0, fmt.Errorf("listing snippets of %s: %w", users[i].ID, err)
		}
		details = append(details, UserDetail{User: &users[i], SnippetIDs: ids})
	}
	return details, count, nil
}

// Get returns one user and their snippet IDs.
// Returns apperror.ErrNotFound if no user has that ID.
func (s *UserService) Get(ctx context.Context, id string) (*UserDetail, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ids, err := s.snippets.ListIDsByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing snippets of %s: %w", user.ID, err)
	}
	return &UserDetail{User: user, SnippetIDs: ids}, nil
}
