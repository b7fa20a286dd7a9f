package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Empty(t, cfg.Server.BaseURL)
	assert.Equal(t, "data/snippets.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Auth.GitHub.Enabled())
	assert.Equal(t, "http://localhost:8000/auth/github/callback", cfg.Auth.GitHub.CallbackURL)
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "https://snippets.example.com", cfg.Server.BaseURL)
	require.Equal(t, "/var/lib/snippets/prod.db", cfg.Database.Path)
	require.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	require.True(t, cfg.Auth.GitHub.Enabled())
	require.Equal(t, "https://snippets.example.com/auth/github/callback", cfg.Auth.GitHub.CallbackURL)
	require.False(t, cfg.Metrics.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("SNIPPETS_SERVER_PORT", "7070")
	t.Setenv("SNIPPETS_AUTH_JWT_SECRET", "env-secret-that-is-long-enough")
	t.Setenv("SNIPPETS_AUTH_TOKEN_TTL", "30m")

	cfg, err := Load(filepath.Join("testdata"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env-secret-that-is-long-enough", cfg.Auth.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	// untouched keys still come from the file
	assert.Equal(t, "/var/lib/snippets/prod.db", cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8000},
			Database: DatabaseConfig{Path: "data/snippets.db"},
			Auth:     AuthConfig{JWTSecret: "0123456789abcdef", TokenTTL: time.Hour},
			Metrics:  MetricsConfig{Enabled: true, Path: "/metrics"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"short secret":     func(c *Config) { c.Auth.JWTSecret = "short" },
		"zero port":        func(c *Config) { c.Server.Port = 0 },
		"negative port":    func(c *Config) { c.Server.Port = -1 },
		"non-positive ttl": func(c *Config) { c.Auth.TokenTTL = 0 },
		"empty db path":    func(c *Config) { c.Database.Path = "" },
		"relative metrics": func(c *Config) { c.Metrics.Path = "metrics" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range cases {
		cfg := &Config{Server: ServerConfig{LogLevel: in}}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}
