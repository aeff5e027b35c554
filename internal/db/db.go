// Package db provides a GORM-based database layer for Macrolog.
// It uses the pure-Go SQLite driver and holds both the local entity
// store and the durable sync outbox.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/macrolog/macrolog/internal/models"
)

// DB wraps the GORM database connection with Macrolog-specific operations.
type DB struct {
	*gorm.DB
	path        string
	backoffBase time.Duration
	backoffMax  time.Duration
}

// Config holds database configuration options.
type Config struct {
	Path        string
	Debug       bool
	MaxIdleConn int
	MaxOpenConn int

	// Retry backoff for failed outbox operations: base * 2^attempts,
	// capped at max.
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Debug:       false,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
		BackoffBase: 2 * time.Second,
		BackoffMax:  5 * time.Minute,
	}
}

// New creates a new database connection and runs migrations.
func New(cfg Config) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	// DELETE journal mode for simpler transaction handling
	// (WAL mode has visibility issues with the pure-Go SQLite driver)
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true, // Better performance for read operations
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 5 * time.Minute
	}

	wrapped := &DB{DB: db, path: cfg.Path, backoffBase: cfg.BackoffBase, backoffMax: cfg.BackoffMax}

	if err := wrapped.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", classify(err))
	}

	if err := wrapped.seedSyncMeta(); err != nil {
		return nil, fmt.Errorf("seed sync meta: %w", err)
	}

	return wrapped, nil
}

// migrate runs GORM auto-migrations for all models.
func (db *DB) migrate() error {
	return db.AutoMigrate(
		&models.DailyLog{},
		&models.FoodItem{},
		&models.ExerciseItem{},
		&models.CustomMeal{},
		&models.Ingredient{},
		&models.Operation{},
		&models.SyncMeta{},
	)
}

// seedSyncMeta inserts default sync metadata if not present.
func (db *DB) seedSyncMeta() error {
	defaults := []models.SyncMeta{
		{Key: models.SyncMetaLastFullSync, Value: ""},
		{Key: models.SyncMetaLastDeltaCursor, Value: ""},
		{Key: models.SyncMetaSchemaVersion, Value: "1"},
		{Key: models.SyncMetaRetentionLastRun, Value: ""},
	}

	for _, meta := range defaults {
		// Only insert if not exists
		result := db.Where("key = ?", meta.Key).FirstOrCreate(&meta)
		if result.Error != nil {
			return result.Error
		}
	}

	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction executes a function within a database transaction.
// The callback receives a *DB wrapper that uses the transaction.
// If the callback returns an error, the transaction is rolled back.
func (d *DB) Transaction(fc func(tx *DB) error) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		wrappedTx := &DB{DB: tx, path: d.path, backoffBase: d.backoffBase, backoffMax: d.backoffMax}
		return fc(wrappedTx)
	})
}

// classify maps low-level SQLite failures onto the store's error surface.
// Corruption cannot be retried away, so it gets a distinct sentinel that
// callers match with errors.Is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database disk image is malformed") ||
		strings.Contains(msg, "file is not a database") {
		return fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	return err
}
