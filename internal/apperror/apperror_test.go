package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// TABLE-DRIVEN TESTS:
// Each case names an error, a sentinel, and whether errors.Is should match.
// Adding a new error kind means adding one struct to the slice.

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("snippet", "42"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "InvalidPage wraps ErrNotFound",
			err:       InvalidPage(),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("code", MsgFieldRequired),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("user", "alice"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "PermissionDenied wraps ErrForbidden",
			err:       PermissionDenied(),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated(),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated does NOT match ErrForbidden",
			err:       Unauthenticated(),
			target:    ErrForbidden,
			wantMatch: false,
		},
		{
			name:      "ParseError wraps ErrParse",
			err:       ParseError(errors.New("unexpected EOF")),
			target:    ErrParse,
			wantMatch: true,
		},
		{
			name:      "wrapped NotFound still matches",
			err:       fmt.Errorf("loading: %w", NotFound("snippet", "1")),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("snippet", "42"),
			target:    ErrValidation,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound uses the generic message",
			err:         NotFound("snippet", "42"),
			wantMessage: "Not found.",
		},
		{
			name:        "Unauthenticated",
			err:         Unauthenticated(),
			wantMessage: "Authentication credentials were not provided.",
		},
		{
			name:        "PermissionDenied",
			err:         PermissionDenied(),
			wantMessage: "You do not have permission to perform this action.",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("user", "alice"),
			wantMessage: "user conflict with id alice",
		},
		{
			name:        "ParseError prefixes the cause",
			err:         ParseError(errors.New("unexpected EOF")),
			wantMessage: "JSON parse error - unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Message; got != tt.wantMessage {
				t.Errorf("Message = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestValidationFields(t *testing.T) {
	err := ValidationFailed("code", MsgFieldRequired)

	msgs, ok := err.Fields["code"]
	if !ok {
		t.Fatal("Fields missing \"code\"")
	}
	if len(msgs) != 1 || msgs[0] != "This field is required." {
		t.Errorf("Fields[code] = %v, want [%q]", msgs, MsgFieldRequired)
	}
}

func TestInvalid_ErrorListsFieldsSorted(t *testing.T) {
	err := Invalid(map[string][]string{
		"style":    {"bad"},
		"language": {"bad"},
	})

	want := "invalid input: [language style]"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
