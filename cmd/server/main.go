// Package main is the entry point for the snippets API server.
//
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (config.yaml and SNIPPETS_* environment variables)
// 2. Create dependencies (logger, database directory)
// 3. Start the application, or run a one-off command
//
// USAGE:
//
//	server                                         run the API
//	server createuser -username alice -password …  add a local account
//	server -config /etc/snippets …                 extra directory searched for config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/snippets-api/internal/apperror"
	"github.com/sakif/snippets-api/internal/config"
	"github.com/sakif/snippets-api/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("server", flag.ContinueOnError)
	configDir := global.String("config", "", "extra directory to search for config.yaml")
	if err := global.Parse(args); err != nil {
		return err
	}

	// === 1. READ CONFIGURATION ===
	var dirs []string
	if *configDir != "" {
		dirs = append(dirs, *configDir)
	}
	cfg, err := config.Load(dirs...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// === 2. SET UP LOGGING ===
	// Log levels (from least to most severe): Debug → Info → Warn → Error
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	if cfg.Database.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("creating database directory %s: %w", dbDir, err)
		}
	}

	// === 4. CREATE THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// === 5. RUN ===
	rest := global.Args()
	if len(rest) == 0 {
		// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
		return srv.Start()
	}

	defer srv.Close()
	switch rest[0] {
	case "createuser":
		return createUser(srv, rest[1:], logger)
	default:
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

// createUser adds a local account from the command line.
func createUser(srv *server.Server, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("createuser", flag.ContinueOnError)
	username := fs.String("username", "", "login name")
	password := fs.String("password", "", "password (falls back to SNIPPETS_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("SNIPPETS_PASSWORD")
	}
	if *username == "" || *password == "" {
		return errors.New("createuser: -username and -password are required")
	}

	user, err := srv.AuthService().CreateUser(context.Background(), *username, *password)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
			for field, msgs := range appErr.Fields {
				for _, msg := range msgs {
					fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
				}
			}
		}
		return fmt.Errorf("createuser: %w", err)
	}
	logger.Info("user created", slog.String("id", user.ID), slog.String("username", user.Username))
	return nil
}
