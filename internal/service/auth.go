// Authentication business logic.
//
// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Register local accounts and log them in with username + password
//   - Orchestrate the GitHub OAuth callback: upsert the user, issue tokens
//   - Turn the user ID the middleware found into a policy.Caller

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/snippets-api/internal/apperror"
	"github.com/sakif/snippets-api/internal/auth"
	"github.com/sakif/snippets-api/internal/model"
	"github.com/sakif/snippets-api/internal/policy"
	"github.com/sakif/snippets-api/internal/repository"
)

// Messages returned by the account endpoints.
const (
	MsgUsernameTaken      = "A user with that username already exists."
	MsgInvalidUsername    = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	MsgInvalidCredentials = "Unable to log in with provided credentials."
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// credentials is validated with the same validator library the serializer uses.
type credentials struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Password string `json:"password" validate:"required,max=72"`
}

var credentialsValidator = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}()

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → generate/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go (or main.go) when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is returned by authentication operations.
// It bundles the user record and the issued JWT together so the caller
// (the HTTP handler) can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a local account and logs it in.
//
// Validation failures come back as field errors keyed "username"/"password";
// a taken username is reported on the "username" field, not as a 409, so the
// client can show it next to the input.
func (s *AuthService) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.CreateUser(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// CreateUser validates and stores a local account without issuing a token.
// The createuser command uses it directly.
func (s *AuthService) CreateUser(ctx context.Context, username, password string) (*model.User, error) {
	creds := credentials{Username: strings.TrimSpace(username), Password: password}
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(creds.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		// Only reachable for multi-byte passwords: the rune count passed max=72.
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Ensure this field has no more than %d bytes.", auth.MaxPasswordBytes))
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Username: creds.Username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("username", MsgUsernameTaken)
		}
		s.logger.Error("failed to create user",
			slog.String("username", creds.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: creating user %q: %w", creds.Username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login verifies a username + password pair and issues a token.
//
// An unknown username and a wrong password produce the same error, so the
// response does not reveal which usernames exist. GitHub accounts have no
// password hash and can never log in this way.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	fields := map[string][]string{}
	if strings.TrimSpace(username) == "" {
		fields["username"] = []string{apperror.MsgFieldBlank}
	}
	if password == "" {
		fields["password"] = []string{apperror.MsgFieldBlank}
	}
	if len(fields) > 0 {
		return nil, apperror.Invalid(fields)
	}

	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("non_field_errors", MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	if user.PasswordHash == "" || s.passwords.Verify(user.PasswordHash, password) != nil {
		s.logger.Warn("failed login", slog.String("username", user.Username))
		return nil, apperror.ValidationFailed("non_field_errors", MsgInvalidCredentials)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// After the handler exchanges the GitHub code for a GitHubUser profile, it
// calls this method to:
//
//  1. Upsert the user in the database (create on first login, refresh the
//     email on subsequent logins)
//  2. Generate a JWT access token for the authenticated user
//  3. Return both so the handler can set the HttpOnly cookie and redirect
//
// WHAT THIS METHOD DOES NOT DO:
//   - It does NOT set cookies (that's the handler's job)
//   - It does NOT read HTTP requests
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID: ghUser.ID,
		Username: ghUser.Login,
		Email:    ghUser.Email,
	}

	// After this call, user.ID is populated by the repository.
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(user)
}

// GetUserByID returns the user for the given internal ID.
//
// Used by the /api-auth/me/ handler after the middleware validates the JWT and
// extracts the userID from the token's Subject claim.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

// ValidateToken validates a JWT string and returns the userID it encodes.
//
// This is a thin delegation to TokenService.Validate. Having it on
// AuthService means callers only need to import the service package, not
// the auth package directly.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// CallerFor resolves the identity the access policy works with.
//
// An empty userID is an anonymous request. So is a valid token whose user has
// since been deleted: the token proves nothing about a row that no longer exists.
func (s *AuthService) CallerFor(ctx context.Context, userID string) (policy.Caller, error) {
	if userID == "" {
		return policy.Anonymous, nil
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return policy.Anonymous, nil
		}
		return policy.Anonymous, fmt.Errorf("service/auth: resolving caller %s: %w", userID, err)
	}
	return policy.Caller{UserID: user.ID, Username: user.Username}, nil
}

// TokenTTL is how long issued tokens (and the login cookie) stay valid.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// validateCredentials turns validator errors into per-field messages.
func validateCredentials(c credentials) error {
	err := credentialsValidator.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("service/auth: validating credentials: %w", err)
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = apperror.MsgFieldBlank
		case "max":
			msg = fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		case "username":
			msg = MsgInvalidUsername
		default:
			msg = fmt.Sprintf("Failed on the %q rule.", fe.Tag())
		}
		fields[fe.Field()] = append(fields[fe.Field()], msg)
	}
	return apperror.Invalid(fields)
}
