package db

import (
	"fmt"

	"github.com/macrolog/macrolog/internal/models"
)

// SaveAndEnqueue persists a local mutation and its outbox operation in
// one transaction, so a crash can never leave a saved entity without a
// queued upload or vice versa. The entity is stamped pending and its
// modification time refreshed before the write.
func (db *DB) SaveAndEnqueue(e models.Entity, kind models.OpKind) error {
	e.SetStatus(models.SyncPending)
	e.Touch()

	payload, err := models.EncodeEntity(e)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", e.Type(), e.EntityID(), err)
	}

	return db.Transaction(func(tx *DB) error {
		if err := tx.SaveEntity(e); err != nil {
			return err
		}
		_, err := tx.EnqueueOp(e.Type(), e.EntityID(), kind, payload)
		return err
	})
}

// DeleteAndEnqueue removes a local entity and queues the remote delete
// in one transaction.
func (db *DB) DeleteAndEnqueue(t models.EntityType, id string) error {
	return db.Transaction(func(tx *DB) error {
		if err := tx.DeleteEntity(t, id); err != nil {
			return err
		}
		_, err := tx.EnqueueOp(t, id, models.OpDelete, nil)
		return err
	})
}
