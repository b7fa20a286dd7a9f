// Package model defines the data structures used throughout the application.
// Records are plain structs; JSON shapes for responses live in internal/serializer.
package model

import "time"

// Default values applied to a snippet when the client leaves a field out on create.
const (
	DefaultLanguage = "python"
	DefaultStyle    = "friendly"
)

// Snippet represents a stored code fragment.
//
// OWNERSHIP:
// OwnerID is set exactly once, when the snippet is created, to the ID of the
// authenticated caller. Nothing after that may change it: the repository's
// UPDATE statement does not even mention the owner_id column.
//
// DERIVED FIELD:
// Highlighted is never accepted from a client. The repository recomputes it from
// (Code, Language, Style, Linenos) on every Create and Update, so it can never
// drift from the fields it is rendered from.
//
// Owner is the owner's display name (username). It is filled in when the snippet
// is read back from the database via a JOIN on users and is read-only.
type Snippet struct {
	ID          int64
	Created     time.Time
	Title       string
	Code        string
	Linenos     bool
	Language    string
	Style       string
	OwnerID     string
	Owner       string
	Highlighted string
}
