// Package migration uploads pre-login local data to a user's remote
// account on first sign-in.
package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/macrolog/macrolog/internal/db"
	"github.com/macrolog/macrolog/internal/log"
	"github.com/macrolog/macrolog/internal/models"
	syncpkg "github.com/macrolog/macrolog/internal/sync"
)

// Service migrates owner-less local entities into the signed-in user's
// remote account. It is idempotent: every candidate is marked owned
// only after its upload is confirmed, so a rerun after a crash or
// network drop picks up exactly the records that were left behind.
type Service struct {
	store  *db.DB
	remote syncpkg.RemoteStore
}

// New creates a migration service.
func New(store *db.DB, remoteStore syncpkg.RemoteStore) *Service {
	return &Service{store: store, remote: remoteStore}
}

// MigrateLocalData scans the local store for entities with no owner,
// uploads each to the user's account, and assigns ownership on
// confirmed upload. An auth failure aborts immediately; a network
// failure aborts the pass with partial progress preserved; any other
// per-entity failure is counted and the scan continues.
func (s *Service) MigrateLocalData(ctx context.Context, userID string) (*models.MigrationResult, error) {
	if userID == "" {
		return nil, syncpkg.ErrNotAuthenticated
	}

	result := &models.MigrationResult{}

	for _, t := range models.EntityTypes() {
		entities, err := s.store.FetchUnowned(t)
		if err != nil {
			return result, fmt.Errorf("scan %s: %w", t, err)
		}

		for _, e := range entities {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			err := s.migrateOne(ctx, userID, e)
			switch {
			case err == nil:
				result.Record(t)
			case errors.Is(err, syncpkg.ErrNetworkUnavailable),
				errors.Is(err, syncpkg.ErrNotAuthenticated):
				return result, err
			default:
				result.FailedCount++
				log.Errorf("migrate %s %s: %v", t, e.EntityID(), err)
			}
		}
	}

	return result, nil
}

// migrateOne uploads one entity and marks it owned and synced. The
// ownership write happens only after the remote store confirms, so a
// failure leaves the entity eligible for the next run.
func (s *Service) migrateOne(ctx context.Context, userID string, e models.Entity) error {
	e.SetOwner(userID)
	payload, err := models.EncodeEntity(e)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := s.remote.PutDocument(ctx, userID, e.Type(), e.EntityID(), payload); err != nil {
		return err
	}
	return s.store.AssignOwner(e.Type(), e.EntityID(), userID, models.SyncSynced)
}
