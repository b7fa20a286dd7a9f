// Package policy decides who may do what to a snippet.
//
// The rule set is small enough to read as a table:
//
//	Action   | anonymous        | authenticated non-owner | owner
//	---------+------------------+-------------------------+------
//	read     | allow            | allow                   | allow
//	create   | unauthenticated  | allow                   | allow
//	update   | unauthenticated  | permission denied       | allow
//	delete   | unauthenticated  | permission denied       | allow
//
// EXPLICIT CALLER:
// The caller is always passed in as a parameter. Nothing here reads the request
// context, so the same functions serve HTTP handlers, the service layer and tests.
package policy

import (
	"github.com/sakif/snippets-api/internal/apperror"
	"github.com/sakif/snippets-api/internal/model"
)

// Caller is the identity making the current request.
// The zero value is the anonymous caller.
type Caller struct {
	UserID   string
	Username string
}

// Anonymous is the caller used when a request carries no valid credentials.
var Anonymous = Caller{}

func (c Caller) IsAuthenticated() bool {
	return c.UserID != ""
}

// Action is an operation on a snippet.
type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// CanRead reports whether caller may see snippet. Reading is public.
func CanRead(_ *model.Snippet, _ Caller) bool {
	return true
}

// CanWrite reports whether caller may modify or delete snippet.
func CanWrite(snippet *model.Snippet, caller Caller) bool {
	return caller.IsAuthenticated() && snippet != nil && caller.UserID == snippet.OwnerID
}

// Authorize applies the decision table and returns nil when the action is allowed.
//
// For ActionCreate the snippet is ignored (it does not exist yet). For the write
// actions, an anonymous caller always gets the authentication error, never the
// permission error, so clients can tell "log in" apart from "not yours".
func Authorize(action Action, snippet *model.Snippet, caller Caller) error {
	switch action {
	case ActionRead:
		if CanRead(snippet, caller) {
			return nil
		}
		return apperror.PermissionDenied()
	case ActionCreate:
		if caller.IsAuthenticated() {
			return nil
		}
		return apperror.Unauthenticated()
	case ActionUpdate, ActionDelete:
		if !caller.IsAuthenticated() {
			return apperror.Unauthenticated()
		}
		if !CanWrite(snippet, caller) {
			return apperror.PermissionDenied()
		}
		return nil
	default:
		return apperror.PermissionDenied()
	}
}
