package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/snippets-api/internal/apperror"
)

// CookieName is the HttpOnly cookie the login handlers set.
const CookieName = "token"

// contextKey keeps the user ID out of reach of other packages' context values.
type contextKey string

const userIDKey contextKey = "userID"

// Authenticate extracts the user identity if a valid token is present, but
// does NOT block the request if it's missing or invalid.
//
// Every snippet route sits behind this middleware. Reads are public, and the
// decision about writes belongs to the access policy, which needs to tell
// "anonymous" apart from "authenticated but not the owner".
func Authenticate(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil && userID != "" {
				r = r.WithContext(ContextWithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests outright. Only routes that make no
// sense without an identity (GET /api-auth/me/) use it.
//
// The rejection mirrors the access policy: 403 with the
// "Authentication credentials were not provided." detail.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil || userID == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"detail":"` + apperror.MsgNotAuthenticated + `"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// ContextWithUserID returns a copy of ctx carrying userID.
// The middlewares use it; handler tests use it to fake a logged-in caller.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user's ID, or ("", false) for
// an anonymous request.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID finds a token on the request and validates it.
//
// Two places are checked, in order:
//  1. the "token" cookie, which browsers send automatically after login
//  2. an "Authorization: Bearer <jwt>" header, for curl and other API clients
//
// No token at all returns http.ErrNoCookie.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return tokens.Validate(cookie.Value)
	}

	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return tokens.Validate(strings.TrimSpace(token))
	}

	return "", http.ErrNoCookie
}
