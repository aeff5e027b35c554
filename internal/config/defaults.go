package config

import "time"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir: DefaultBaseDir(),

		Remote: RemoteConfig{
			BaseURL:     "https://api.macrolog.app",
			RateLimit:   120,
			CallTimeout: 15 * time.Second,
		},

		Sync: SyncConfig{
			BatchSize:    25,
			PushInterval: 15 * time.Second,
			BackoffBase:  2 * time.Second,
			BackoffMax:   5 * time.Minute,
		},

		Retention: RetentionConfig{
			Horizon:     90 * 24 * time.Hour,
			LaunchDelay: 2 * time.Minute,
		},
	}
}
