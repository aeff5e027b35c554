// Package retention prunes old, already-synced entities from the local
// store so the on-device database stays small. The remote copy is the
// archive; retention only ever removes records whose sync status says a
// confirmed remote copy exists.
package retention

import (
	"fmt"
	"sync"
	"time"

	"github.com/macrolog/macrolog/internal/db"
	"github.com/macrolog/macrolog/internal/log"
	"github.com/macrolog/macrolog/internal/models"
)

// Config holds retention tuning knobs.
type Config struct {
	// Horizon is how far back local copies are kept. Entities last
	// modified before now-Horizon become prune candidates.
	Horizon time.Duration

	// LaunchDelay postpones the pass past app startup so it never
	// competes with the initial sync for the database.
	LaunchDelay time.Duration

	// OnPruned, when set, is called with the pruned count after a
	// successful pass.
	OnPruned func(count int)
}

// DefaultConfig returns sensible defaults: keep ninety days locally,
// run two minutes after launch.
func DefaultConfig() Config {
	return Config{
		Horizon:     90 * 24 * time.Hour,
		LaunchDelay: 2 * time.Minute,
	}
}

// Scheduler runs at most one retention pass per app launch.
type Scheduler struct {
	store *db.DB
	cfg   Config

	mu        sync.Mutex
	timer     *time.Timer
	scheduled bool
	done      chan struct{}
}

// New creates a scheduler.
func New(store *db.DB, cfg Config) *Scheduler {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultConfig().Horizon
	}
	if cfg.LaunchDelay < 0 {
		cfg.LaunchDelay = DefaultConfig().LaunchDelay
	}
	return &Scheduler{store: store, cfg: cfg}
}

// ScheduleOnLaunch arms the launch-delayed retention pass. Repeat calls
// within the same launch are no-ops, so at most one pass runs per
// process lifetime. Failures inside the pass are logged and swallowed:
// retention is housekeeping and must never surface as a sync error.
func (s *Scheduler) ScheduleOnLaunch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduled {
		return
	}
	s.scheduled = true
	s.done = make(chan struct{})

	s.timer = time.AfterFunc(s.cfg.LaunchDelay, func() {
		defer close(s.done)
		if err := s.runPass(); err != nil {
			log.Errorf("retention pass: %v", err)
		}
	})
}

// Stop cancels a pending pass. A pass already running completes; one
// that has not fired yet never will. Safe to call at any time.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	timer := s.timer
	done := s.done
	s.mu.Unlock()

	if timer == nil {
		return
	}
	if timer.Stop() {
		// Never fired; nothing to wait for.
		return
	}
	if done != nil {
		<-done
	}
}

// runPass deletes synced entities older than the horizon and records
// the run time. Entities that are unsynced, pending, or failed are
// never touched: their only copy is local.
func (s *Scheduler) runPass() error {
	cutoff := time.Now().UTC().Add(-s.cfg.Horizon)
	pruned := 0

	for _, t := range models.EntityTypes() {
		candidates, err := s.store.FetchSyncedOlderThan(t, cutoff)
		if err != nil {
			return fmt.Errorf("scan %s: %w", t, err)
		}
		for _, e := range candidates {
			if err := s.store.DeleteEntity(t, e.EntityID()); err != nil {
				return fmt.Errorf("prune %s %s: %w", t, e.EntityID(), err)
			}
			pruned++
		}
	}

	if err := s.store.SetSyncMeta(models.SyncMetaRetentionLastRun, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record retention run: %w", err)
	}

	if pruned > 0 {
		log.Debugf("retention pruned %d entities older than %s", pruned, cutoff.Format(time.RFC3339))
	}
	if s.cfg.OnPruned != nil {
		s.cfg.OnPruned(pruned)
	}
	return nil
}
