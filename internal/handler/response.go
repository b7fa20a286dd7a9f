package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, r, logger, err)
//
// ERROR FORMAT:
// Errors with a single message use the shape clients of this API already parse:
//   {"detail": "Not found."}
//
// Validation errors list the messages per field instead:
//   {"code": ["This field is required."], "style": ["\"neon\" is not a valid choice."]}

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/snippets-api/internal/apperror"
)

// maxBodyBytes bounds every request body the API reads.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, so all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error kind to its HTTP status.
//
// Unauthenticated and Forbidden share 403: a write without credentials gets
// the same status as a write by someone who is not the owner, and only the
// detail message tells them apart.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthenticated), errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// The service layer returns apperror kinds and never knows about HTTP; this
// is the one place where ErrNotFound becomes 404.
//
// errors.As walks the chain, so an *AppError wrapped by fmt.Errorf("...: %w")
// in a service is still found here.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// NEVER expose internal error details to the client: the raw message
		// might contain SQL or file paths.
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "A server error occurred."})
		return
	}

	status := statusFor(err)
	if status == http.StatusBadRequest && len(appErr.Fields) > 0 {
		writeJSON(w, status, appErr.Fields)
		return
	}
	writeJSON(w, status, ErrorResponse{Detail: appErr.Message})
}

// readBody reads the whole request body, refusing anything over maxBodyBytes.
// The bytes are handed to the service undecoded: the service decides when to
// parse them, which is only after the caller has been authorised.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Detail: "Request body too large."})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "Could not read request body."})
		return nil, false
	}
	return body, true
}

// decodeJSON parses a small fixed-shape body (login, register).
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, ok := readBody(w, r)
	if !ok {
		return errBodyWritten
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperror.ParseError(err)
	}
	return nil
}

// errBodyWritten signals that readBody already sent the response.
var errBodyWritten = errors.New("handler: response already written")
