package cli

import (
	"fmt"

	"github.com/macrolog/macrolog/internal/config"
	"github.com/macrolog/macrolog/internal/db"
	"github.com/macrolog/macrolog/internal/remote"
	"github.com/macrolog/macrolog/internal/sync"
)

// engine bundles the components a sync-touching command needs.
type engine struct {
	cfg          *config.Config
	database     *db.DB
	client       *remote.Client
	orchestrator *sync.Orchestrator
}

// openDatabase loads config and opens the local store. Commands that
// never touch the remote side use this lighter path.
func openDatabase() (*config.Config, *db.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	paths := config.GetPaths(cfg)
	dbCfg := db.DefaultConfig(paths.Database)
	dbCfg.Debug = cfg.Debug
	dbCfg.BackoffBase = cfg.Sync.BackoffBase
	dbCfg.BackoffMax = cfg.Sync.BackoffMax

	database, err := db.New(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}
	return cfg, database, nil
}

// newEngine opens the database and wires up the remote client and
// orchestrator from config.
func newEngine() (*engine, error) {
	cfg, database, err := openDatabase()
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(remote.ClientConfig{
		BaseURL:           cfg.Remote.BaseURL,
		Token:             cfg.Remote.Token,
		RequestsPerMinute: cfg.Remote.RateLimit,
		CallTimeout:       cfg.Remote.CallTimeout,
	})
	listener := remote.NewListener(client).WithCursorStore(database)

	orch := sync.New(database, client, listener, sync.Config{
		BatchSize:    cfg.Sync.BatchSize,
		PushInterval: cfg.Sync.PushInterval,
	})

	return &engine{
		cfg:          cfg,
		database:     database,
		client:       client,
		orchestrator: orch,
	}, nil
}

// close releases the engine's resources.
func (e *engine) close() {
	e.orchestrator.StopListening()
	_ = e.database.Close()
}

// userID returns the configured account, or an auth error if none is
// set.
func (e *engine) userID() (string, error) {
	if e.cfg.Remote.UserID == "" {
		return "", fmt.Errorf("%w: set MACROLOG_USER_ID and MACROLOG_TOKEN", sync.ErrNotAuthenticated)
	}
	return e.cfg.Remote.UserID, nil
}
