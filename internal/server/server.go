// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer. It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go: config.Load → server.New
//	server.New: sqlite.DB → services → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/snippets-api/internal/auth"
	"github.com/sakif/snippets-api/internal/config"
	"github.com/sakif/snippets-api/internal/handler"
	"github.com/sakif/snippets-api/internal/metrics"
	"github.com/sakif/snippets-api/internal/middleware"
	sqliteRepo "github.com/sakif/snippets-api/internal/repository/sqlite"
	"github.com/sakif/snippets-api/internal/service"
)

// Option adjusts how New builds the server. Tests use them to swap in cheap
// or fake dependencies.
type Option func(*Server)

// WithPasswordService replaces the default bcrypt cost.
func WithPasswordService(p *auth.PasswordService) Option {
	return func(s *Server) { s.passwords = p }
}

// WithGitHub replaces the GitHub OAuth provider built from the config.
// The GitHub routes are registered whenever one is set.
func WithGitHub(g handler.GitHubExchanger) Option {
	return func(s *Server) { s.github = g }
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it during graceful
// shutdown; code that only uses Handler (tests) calls Close.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	metrics *metrics.Metrics

	tokens    *auth.TokenService
	passwords *auth.PasswordService
	github    handler.GitHubExchanger

	auth *service.AuthService
}

// New creates a Server from a validated config.
//
// DEPENDENCY INJECTION & WIRING:
//  1. Open the database (sqlite.New runs the migrations)
//  2. Build the token, password and metrics components
//  3. Build the services on top of the repository interfaces
//  4. Build the handlers and wire them to routes
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		tokens:    tokens,
		passwords: auth.NewPasswordService(),
	}
	if cfg.Auth.GitHub.Enabled() {
		s.github = auth.NewGitHubProvider(cfg.Auth.GitHub.ClientID, cfg.Auth.GitHub.ClientSecret, cfg.Auth.GitHub.CallbackURL)
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Metrics.Enabled {
		m, err := metrics.New(metrics.Options{})
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
		s.metrics = m
	}

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                          → API root (links to the collections)
// GET    /snippets/                 → List snippets, 10 per page
// POST   /snippets/                 → Create snippet (authenticated)
// GET    /snippets/{id}/            → Get single snippet
// PUT    /snippets/{id}/            → Replace snippet fields (owner only)
// PATCH  /snippets/{id}/            → Change some fields (owner only)
// DELETE /snippets/{id}/            → Delete snippet (owner only)
// GET    /snippets/{id}/highlight/  → Rendered HTML
// GET    /users/, /users/{id}/      → Read-only users
// POST   /api-auth/register/, /api-auth/login/, /api-auth/logout/
// GET    /api-auth/me/              → Current user (authenticated)
// GET    /auth/github/login, /auth/github/callback (when GitHub is configured)
// GET    /healthz, and the metrics path when metrics are enabled
//
// Every path works with or without the trailing slash: StripSlashes removes it
// before routing, so routes are registered without one.
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger, Metrics: see the final status of every request
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. StripSlashes, Authenticate: run before routing to a handler
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	if s.metrics != nil {
		s.router.Use(middleware.Metrics(s.metrics))
	}
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.StripSlashes)
	s.router.Use(auth.Authenticate(s.tokens))

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not found."}`))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprintf(w, `{"detail":"Method \"%s\" not allowed."}`, r.Method)
	})

	// DEPENDENCY CHAIN:
	//   s.db (sqlite.DB) implements both repository interfaces.
	//   Services receive the interfaces; handlers receive the services.
	var writes service.WriteRecorder
	var attempts handler.AuthRecorder
	if s.metrics != nil {
		writes = s.metrics
		attempts = s.metrics
	}
	s.auth = service.NewAuthService(s.db, s.tokens, s.passwords, s.logger)
	snippetService := service.NewSnippetService(s.db, s.logger, writes)
	userService := service.NewUserService(s.db, s.db, s.logger)

	base := handler.BaseURL(s.config.Server.BaseURL)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.auth, base, s.logger)
	userHandler := handler.NewUserHandler(userService, base, s.logger)
	authHandler := handler.NewAuthHandler(s.auth, s.github, attempts, s.logger)

	s.router.Get("/", handler.HandleRoot(base))
	s.router.Get("/healthz", handler.HandleHealth(s.db))
	if s.metrics != nil {
		s.router.Handle(s.config.Metrics.Path, s.metrics.Handler())
	}

	s.router.Route("/snippets", func(r chi.Router) {
		r.Get("/", snippetHandler.HandleList)
		r.Post("/", snippetHandler.HandleCreate)
		r.Get("/{id}", snippetHandler.HandleGetByID)
		r.Put("/{id}", snippetHandler.HandleUpdate)
		r.Patch("/{id}", snippetHandler.HandlePatch)
		r.Delete("/{id}", snippetHandler.HandleDelete)
		r.Get("/{id}/highlight", snippetHandler.HandleHighlight)
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Get("/", userHandler.HandleList)
		r.Get("/{id}", userHandler.HandleGetByID)
	})

	s.router.Route("/api-auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.With(auth.RequireAuth(s.tokens)).Get("/me", authHandler.HandleMe)
	})

	if s.github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}
}

// Handler exposes the router, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// AuthService exposes the account service, for the createuser command.
func (s *Server) AuthService() *service.AuthService {
	return s.auth
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("database", s.config.Database.Path),
			slog.Bool("github", s.github != nil),
			slog.Bool("metrics", s.metrics != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
