// Package config handles application configuration management.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Base directory for all Macrolog data
	BaseDir string

	// Debug enables verbose database logging
	Debug bool

	// Remote document store settings
	Remote RemoteConfig

	// Sync engine settings
	Sync SyncConfig

	// Local retention settings
	Retention RetentionConfig
}

// RemoteConfig holds remote document store settings.
type RemoteConfig struct {
	// BaseURL of the document store API (MACROLOG_REMOTE_URL env var)
	BaseURL string
	// Token is the bearer credential (MACROLOG_TOKEN env var)
	Token string
	// UserID of the signed-in account (MACROLOG_USER_ID env var)
	UserID string
	// RateLimit bounds outbound requests per minute
	RateLimit int
	// CallTimeout bounds each individual request
	CallTimeout time.Duration
}

// SyncConfig holds sync engine settings.
type SyncConfig struct {
	// BatchSize bounds how many outbox operations one pass claims
	BatchSize int
	// PushInterval is the background outbox drain cadence
	PushInterval time.Duration
	// BackoffBase and BackoffMax shape per-operation retry delays
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// RetentionConfig holds local retention settings.
type RetentionConfig struct {
	// Horizon is how far back synced entities are kept locally
	Horizon time.Duration
	// LaunchDelay postpones the retention pass past startup
	LaunchDelay time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if u := os.Getenv("MACROLOG_REMOTE_URL"); u != "" {
		cfg.Remote.BaseURL = u
	}
	if token := os.Getenv("MACROLOG_TOKEN"); token != "" {
		cfg.Remote.Token = token
	}
	if uid := os.Getenv("MACROLOG_USER_ID"); uid != "" {
		cfg.Remote.UserID = uid
	}
	if v := os.Getenv("MACROLOG_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sync.BatchSize = n
		}
	}
	if v := os.Getenv("MACROLOG_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Retention.Horizon = time.Duration(n) * 24 * time.Hour
		}
	}
	if v := os.Getenv("MACROLOG_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}

	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ensureDirectories creates required directories if they don't exist.
func ensureDirectories(cfg *Config) error {
	return os.MkdirAll(cfg.BaseDir, 0755)
}
