package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/sakif/snippets-api/internal/apperror"
	"github.com/sakif/snippets-api/internal/model"
	"github.com/sakif/snippets-api/internal/repository"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// WHAT IS A FAKE?
// A fake is a working in-memory implementation of an interface used in tests.
// fakeSnippetRepo and fakeUserRepo implement the same interfaces as sqlite.DB,
// so the service can't tell the difference. You can also make them fail on
// demand (database down) which is hard to trigger with a real database.

var errDatabaseDown = errors.New("database is on fire")

type fakeSnippetRepo struct {
	snippets map[int64]*model.Snippet
	owners   map[string]string // ownerID → username
	nextID   int64

	// set to a non-nil error to simulate a database failure
	failWith error
}

func newFakeSnippetRepo() *fakeSnippetRepo {
	return &fakeSnippetRepo{
		snippets: make(map[int64]*model.Snippet),
		owners:   make(map[string]string),
	}
}

// render stands in for the highlighter: deterministic in the four inputs.
func render(s *model.Snippet) string {
	return fmt.Sprintf("<%s|%s|%t>%s", s.Language, s.Style, s.Linenos, s.Code)
}

func (f *fakeSnippetRepo) Create(_ context.Context, snippet *model.Snippet) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.nextID++
	snippet.ID = f.nextID
	snippet.Created = time.Now().UTC()
	snippet.Owner = f.owners[snippet.OwnerID]
	snippet.Highlighted = render(snippet)
	stored := *snippet
	f.snippets[snippet.ID] = &stored
	return nil
}

func (f *fakeSnippetRepo) GetByID(_ context.Context, id int64) (*model.Snippet, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	s, ok := f.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", strconv.FormatInt(id, 10))
	}
	out := *s
	return &out, nil
}

func (f *fakeSnippetRepo) sorted() []model.Snippet {
	out := make([]model.Snippet, 0, len(f.snippets))
	for _, s := range f.snippets {
		out = append(out, *s)
	}
	// IDs grow with creation time, so id DESC is newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeSnippetRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	all := f.sorted()
	if opts.Offset >= len(all) {
		return []model.Snippet{}, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (f *fakeSnippetRepo) Count(_ context.Context) (int, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	return len(f.snippets), nil
}

func (f *fakeSnippetRepo) ListIDsByOwner(_ context.Context, ownerID string) ([]int64, error) {
	ids := []int64{}
	for _, s := range f.sorted() {
		if s.OwnerID == ownerID {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (f *fakeSnippetRepo) Update(_ context.Context, snippet *model.Snippet) error {
	if f.failWith != nil {
		return f.failWith
	}
	existing, ok := f.snippets[snippet.ID]
	if !ok {
		return apperror.NotFound("snippet", strconv.FormatInt(snippet.ID, 10))
	}
	snippet.Highlighted = render(snippet)
	existing.Title = snippet.Title
	existing.Code = snippet.Code
	existing.Linenos = snippet.Linenos
	existing.Language = snippet.Language
	existing.Style = snippet.Style
	existing.Highlighted = snippet.Highlighted
	return nil
}

func (f *fakeSnippetRepo) Delete(_ context.Context, id int64) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.snippets[id]; !ok {
		return apperror.NotFound("snippet", strconv.FormatInt(id, 10))
	}
	delete(f.snippets, id)
	return nil
}

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
type fakeUserRepo struct {
	users  map[string]*model.User
	byName map[string]*model.User
	byGHID map[int64]*model.User
	nextID int

	upsertErr  error
	getByIDErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*model.User),
		byName: make(map[string]*model.User),
		byGHID: make(map[int64]*model.User),
	}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if _, taken := f.byName[user.Username]; taken {
		return apperror.Conflict("user", user.Username)
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	f.byName[user.Username] = &stored
	if user.GitHubID != 0 {
		f.byGHID[user.GitHubID] = &stored
	}
	return nil
}

func (f *fakeUserRepo) UpsertGitHub(ctx context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.byGHID[user.GitHubID]; ok {
		existing.Email = user.Email
		*user = *existing
		return nil
	}
	return f.CreateUser(ctx, user)
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := f.byName[username]
	if !ok {
		return nil, apperror.NotFound("user", username)
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) ListUsers(_ context.Context, opts repository.ListOptions) ([]model.User, error) {
	all := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	if opts.Offset >= len(all) {
		return []model.User{}, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (f *fakeUserRepo) CountUsers(_ context.Context) (int, error) {
	return len(f.users), nil
}

// countingRecorder records every write the service reports.
type countingRecorder struct {
	ops []string
}

func (c *countingRecorder) SnippetWritten(op string) {
	c.ops = append(c.ops, op)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
