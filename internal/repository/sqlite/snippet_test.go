package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/snippets-api/internal/apperror"
	"github.com/sakif/snippets-api/internal/highlight"
	"github.com/sakif/snippets-api/internal/model"
	"github.com/sakif/snippets-api/internal/repository"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" gives every test its own fresh database that disappears when the
// connection closes. t.Helper() makes failures point at the caller's line.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestOwner inserts a local account that snippets can reference.
func createTestOwner(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test owner: %v", err)
	}
	return u
}

// createTestSnippet creates a snippet owned by owner and fails the test if it errors.
func createTestSnippet(t *testing.T, db *DB, owner *model.User, title, code string) *model.Snippet {
	t.Helper()
	snippet := &model.Snippet{
		Title:    title,
		Code:     code,
		Language: model.DefaultLanguage,
		Style:    model.DefaultStyle,
		OwnerID:  owner.ID,
	}
	if err := db.Create(context.Background(), snippet); err != nil {
		t.Fatalf("failed to create test snippet: %v", err)
	}
	return snippet
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")

	snippet := &model.Snippet{
		Title:    "Hello World",
		Code:     "print('hello')",
		Language: "python",
		Style:    "friendly",
		OwnerID:  owner.ID,
	}

	if err := db.Create(context.Background(), snippet); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if snippet.ID == 0 {
		t.Error("Create() did not set snippet.ID")
	}
	if snippet.Created.IsZero() {
		t.Error("Create() did not set snippet.Created")
	}
	if snippet.Owner != "alice" {
		t.Errorf("Owner = %q, want %q", snippet.Owner, "alice")
	}
	if snippet.Highlighted == "" {
		t.Error("Create() did not render snippet.Highlighted")
	}
}

func TestCreate_HighlightedMatchesRender(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")

	created := createTestSnippet(t, db, owner, "t", "x = 1")

	want, err := highlight.Render("x = 1", "python", "friendly", false)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	found, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Highlighted != want {
		t.Error("stored highlighted does not match a fresh render of the same inputs")
	}
}

func TestCreate_IgnoresClientHighlighted(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")

	snippet := &model.Snippet{
		Code:        "x = 1",
		Language:    "python",
		Style:       "friendly",
		OwnerID:     owner.ID,
		Highlighted: "<b>forged</b>",
	}
	if err := db.Create(context.Background(), snippet); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if snippet.Highlighted == "<b>forged</b>" {
		t.Error("Create() kept a caller-supplied highlighted value")
	}
}

func TestCreate_RequiresOwner(t *testing.T) {
	db := newTestDB(t)

	err := db.Create(context.Background(), &model.Snippet{Code: "x", Language: "python", Style: "friendly"})
	if err == nil {
		t.Fatal("Create() should reject a snippet without an owner")
	}
}

func TestCreate_UnknownOwnerViolatesForeignKey(t *testing.T) {
	db := newTestDB(t)

	err := db.Create(context.Background(), &model.Snippet{
		Code: "x", Language: "python", Style: "friendly", OwnerID: "ghost",
	})
	if err == nil {
		t.Fatal("Create() should fail for an owner that does not exist")
	}
}

func TestCreate_InvalidLanguageWritesNothing(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")

	err := db.Create(context.Background(), &model.Snippet{
		Code: "x", Language: "not-a-language", Style: "friendly", OwnerID: owner.ID,
	})
	if err == nil {
		t.Fatal("Create() should fail when the snippet cannot be rendered")
	}

	n, err := db.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d after failed create, want 0", n)
	}
}

// =========================================================================
// GET BY ID TESTS
// =========================================================================

func TestGetByID(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")
	created := createTestSnippet(t, db, owner, "fetch me", "x = 42")

	found, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}
	if found.Title != "fetch me" {
		t.Errorf("Title = %q, want %q", found.Title, "fetch me")
	}
	if found.OwnerID != owner.ID || found.Owner != "alice" {
		t.Errorf("owner = (%q, %q), want (%q, %q)", found.OwnerID, found.Owner, owner.ID, "alice")
	}
	if !found.Created.Equal(created.Created) {
		t.Errorf("Created = %v, want %v", found.Created, created.Created)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), 9999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestList_Empty(t *testing.T) {
	db := newTestDB(t)

	snippets, err := db.List(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(snippets) != 0 {
		t.Errorf("List() returned %d snippets, want 0", len(snippets))
	}
}

func TestList_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")

	first := createTestSnippet(t, db, owner, "first", "a = 1")
	second := createTestSnippet(t, db, owner, "second", "b = 2")
	third := createTestSnippet(t, db, owner, "third", "c = 3")

	snippets, err := db.List(context.Background(), repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []int64{third.ID, second.ID, first.ID}
	if len(snippets) != len(want) {
		t.Fatalf("List() returned %d snippets, want %d", len(snippets), len(want))
	}
	for i, id := range want {
		if snippets[i].ID != id {
			t.Errorf("snippets[%d].ID = %d, want %d", i, snippets[i].ID, id)
		}
	}
}

func TestList_Pagination(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")

	for i := 0; i < 5; i++ {
		createTestSnippet(t, db, owner, "snippet", "code")
	}

	pages := [][2]int{{2, 0}, {2, 2}, {2, 4}}
	wantLens := []int{2, 2, 1}
	seen := map[int64]bool{}

	for i, pg := range pages {
		got, err := db.List(context.Background(), repository.ListOptions{Limit: pg[0], Offset: pg[1]})
		if err != nil {
			t.Fatalf("List() page %d error = %v", i+1, err)
		}
		if len(got) != wantLens[i] {
			t.Errorf("page %d: got %d items, want %d", i+1, len(got), wantLens[i])
		}
		for _, s := range got {
			if seen[s.ID] {
				t.Errorf("snippet %d appeared on more than one page", s.ID)
			}
			seen[s.ID] = true
		}
	}
}

func TestCount(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")
	for i := 0; i < 3; i++ {
		createTestSnippet(t, db, owner, "s", "x")
	}

	n, err := db.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestListIDsByOwner(t *testing.T) {
	db := newTestDB(t)
	alice := createTestOwner(t, db, "alice")
	bob := createTestOwner(t, db, "bob")

	a1 := createTestSnippet(t, db, alice, "a1", "x")
	createTestSnippet(t, db, bob, "b1", "x")
	a2 := createTestSnippet(t, db, alice, "a2", "x")

	ids, err := db.ListIDsByOwner(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ListIDsByOwner() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != a2.ID || ids[1] != a1.ID {
		t.Errorf("ListIDsByOwner() = %v, want [%d %d]", ids, a2.ID, a1.ID)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdate_RecomputesHighlighted(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")
	original := createTestSnippet(t, db, owner, "original", "a = 1")
	before := original.Highlighted

	original.Code = "b = 2"
	original.Linenos = true
	if err := db.Update(context.Background(), original); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.GetByID(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Code != "b = 2" || !found.Linenos {
		t.Errorf("update not persisted: code=%q linenos=%v", found.Code, found.Linenos)
	}
	if found.Highlighted == before {
		t.Error("Update() did not recompute highlighted")
	}
	if !strings.Contains(found.Highlighted, "2") {
		t.Error("highlighted does not reflect the new code")
	}
}

func TestUpdate_OwnerAndCreatedAreImmutable(t *testing.T) {
	db := newTestDB(t)
	alice := createTestOwner(t, db, "alice")
	bob := createTestOwner(t, db, "bob")
	original := createTestSnippet(t, db, alice, "mine", "x")

	tampered := *original
	tampered.OwnerID = bob.ID
	if err := db.Update(context.Background(), &tampered); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.GetByID(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.OwnerID != alice.ID {
		t.Errorf("OwnerID = %q after update, want %q", found.OwnerID, alice.ID)
	}
	if !found.Created.Equal(original.Created) {
		t.Errorf("Created changed from %v to %v", original.Created, found.Created)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(context.Background(), &model.Snippet{ID: 404, Code: "x", Language: "python", Style: "friendly"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	owner := createTestOwner(t, db, "alice")
	s := createTestSnippet(t, db, owner, "doomed", "x")

	if err := db.Delete(context.Background(), s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.GetByID(context.Background(), s.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Delete(context.Background(), 404)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
