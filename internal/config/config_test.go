package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GOOBER_API_URL", "GOOBER_REQUEST_TIMEOUT", "GOOBER_DETECT_INTERVAL",
		"GOOBER_CAMERA_DEVICE", "GOOBER_CAMERA_FORMAT", "GOOBER_CAMERA_FPS", "GOOBER_CAMERA_SIZE",
		"GOOBER_PREVIEW_ADDR", "DATABASE_URL", "POSTGRES_HOST", "POSTGRES_PORT",
		"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "LOG_LEVEL", "NO_COLOR",
	} {
		// Setenv registers the restore; godotenv never overrides a variable that exists, even empty.
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:3000", cfg.API.URL)
	assert.Equal(t, 10*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, time.Second, cfg.API.DetectInterval)
	assert.Equal(t, "", cfg.DatabaseURL())
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GOOBER_API_URL=http://detector:5000\nGOOBER_DETECT_INTERVAL=250ms\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://detector:5000", cfg.API.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.API.DetectInterval)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("GOOBER_REQUEST_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.API.RequestTimeout)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			API: APIConfig{URL: "http://localhost:3000", RequestTimeout: time.Second, DetectInterval: time.Second},
			App: AppConfig{LogLevel: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative url", func(c *Config) { c.API.URL = "localhost:3000" }},
		{"ftp url", func(c *Config) { c.API.URL = "ftp://host" }},
		{"zero timeout", func(c *Config) { c.API.RequestTimeout = 0 }},
		{"negative interval", func(c *Config) { c.API.DetectInterval = -time.Second }},
		{"bad log level", func(c *Config) { c.App.LogLevel = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, base().Validate())
}

func TestDatabaseURL(t *testing.T) {
	c := &Config{Database: DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p@ss", Name: "goober"}}
	assert.Equal(t, "postgres://u:p%40ss@db:5433/goober", c.DatabaseURL())

	c.Database.URL = "postgres://explicit/db"
	assert.Equal(t, "postgres://explicit/db", c.DatabaseURL())
}
