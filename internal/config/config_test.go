package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotEmpty(t, cfg.BaseDir)
	assert.Equal(t, "https://api.macrolog.app", cfg.Remote.BaseURL)
	assert.Equal(t, 25, cfg.Sync.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Sync.BackoffBase)
	assert.Equal(t, 5*time.Minute, cfg.Sync.BackoffMax)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention.Horizon)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("MACROLOG_REMOTE_URL", "https://staging.macrolog.app")
	t.Setenv("MACROLOG_TOKEN", "tok-123")
	t.Setenv("MACROLOG_USER_ID", "user-1")
	t.Setenv("MACROLOG_BATCH_SIZE", "50")
	t.Setenv("MACROLOG_RETENTION_DAYS", "30")
	t.Setenv("MACROLOG_DEBUG", "true")
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://staging.macrolog.app", cfg.Remote.BaseURL)
	assert.Equal(t, "tok-123", cfg.Remote.Token)
	assert.Equal(t, "user-1", cfg.Remote.UserID)
	assert.Equal(t, 50, cfg.Sync.BatchSize)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.Horizon)
	assert.True(t, cfg.Debug)
}

func TestLoad_IgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("MACROLOG_BATCH_SIZE", "not-a-number")
	t.Setenv("MACROLOG_RETENTION_DAYS", "-5")
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Sync.BatchSize)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention.Horizon)
}

func TestGetPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseDir = "/tmp/macrolog-test"

	paths := GetPaths(cfg)
	assert.Equal(t, "/tmp/macrolog-test/macrolog.db", paths.Database)
	assert.Equal(t, "/tmp/macrolog-test/logs", paths.Logs)
}
