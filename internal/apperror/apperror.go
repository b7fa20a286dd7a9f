// Package apperror defines the domain error taxonomy shared by every layer.
//
// Each error kind is a sentinel (ErrNotFound, ErrValidation, ...) wrapped by an
// *AppError that carries the client-facing message. Callers test the kind with
// errors.Is and pull the message out with errors.As; only the HTTP layer decides
// which status code a kind maps to.
package apperror

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrParse           = errors.New("parse error")
)

// Messages existing clients match on byte for byte.
const (
	MsgNotAuthenticated = "Authentication credentials were not provided."
	MsgPermissionDenied = "You do not have permission to perform this action."
	MsgNotFound         = "Not found."
	MsgInvalidPage      = "Invalid page."
	MsgFieldRequired    = "This field is required."
	MsgFieldBlank       = "This field may not be blank."
)

type AppError struct {
	Err     error               // actual error
	Message string              // Human-readable error message
	Fields  map[string][]string // Optional: per-field messages for validation errors
}

func (e *AppError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	// Deterministic output keeps log lines and test failures stable.
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %v", e.Message, names)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing record. The message is the generic "Not found."
// so clients cannot tell a deleted record from one that never existed.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%s %s: %w", resource, id, ErrNotFound),
		Message: MsgNotFound,
	}
}

// InvalidPage reports a page number outside the available range.
func InvalidPage() *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: MsgInvalidPage,
	}
}

func ValidationFailed(field, message string) *AppError {
	return Invalid(map[string][]string{field: {message}})
}

// Invalid wraps a set of field-level messages into a single validation error.
func Invalid(fields map[string][]string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: "invalid input",
		Fields:  fields,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// PermissionDenied is the Forbidden error for an authenticated caller that does
// not own the record it is trying to change.
func PermissionDenied() *AppError {
	return Forbidden(MsgPermissionDenied)
}

// Unauthenticated is returned when a write is attempted without credentials.
// It is a distinct kind from Forbidden even though both map to 403.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: MsgNotAuthenticated,
	}
}

// ParseError reports a request body that is not valid JSON.
func ParseError(cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %v", ErrParse, cause),
		Message: "JSON parse error - " + cause.Error(),
	}
}
