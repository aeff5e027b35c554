package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/macrolog/macrolog/internal/models"
)

// EnqueueOp records a local mutation in the durable outbox. If a live
// operation already exists for the same entity, the new mutation coalesces
// into it: the row keeps its queue position but takes the new kind and
// payload, and its retry state is reset so the fresh payload gets a clean
// first attempt. Replay stays idempotent and superseded states are never
// re-sent.
func (db *DB) EnqueueOp(t models.EntityType, id string, kind models.OpKind, payload []byte) (*models.Operation, error) {
	if !t.Valid() {
		return nil, models.ErrUnknownEntityType
	}

	var op models.Operation
	err := db.Transaction(func(tx *DB) error {
		now := time.Now().UTC()

		var existing models.Operation
		err := tx.Where("entity_type = ? AND entity_id = ?", t, id).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			op = models.Operation{
				EntityType:    t,
				EntityID:      id,
				Kind:          kind,
				Payload:       payload,
				EnqueuedAt:    now,
				NextAttemptAt: now,
			}
			if err := tx.Create(&op).Error; err != nil {
				return fmt.Errorf("enqueue %s %s: %w", t, id, classify(err))
			}
			return nil
		case err != nil:
			return fmt.Errorf("enqueue lookup %s %s: %w", t, id, classify(err))
		}

		// Deleting an entity whose create never left the device cancels
		// both: the remote store has nothing to remove.
		if existing.Kind == models.OpCreate && kind == models.OpDelete {
			if err := tx.Delete(&existing).Error; err != nil {
				return fmt.Errorf("cancel %s %s: %w", t, id, classify(err))
			}
			op = models.Operation{}
			return nil
		}

		existing.Kind = kind
		existing.Payload = payload
		existing.Version++
		existing.AttemptCount = 0
		existing.LastError = ""
		existing.NextAttemptAt = now
		if err := tx.Save(&existing).Error; err != nil {
			return fmt.Errorf("coalesce %s %s: %w", t, id, classify(err))
		}
		op = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	if op.OpID == 0 {
		// Cancelled out entirely (delete over an unpushed create).
		return nil, nil
	}
	return &op, nil
}

// PeekBatch returns up to maxN live operations that are eligible to run
// now, oldest first (FIFO by op_id). Operations still inside their backoff
// window are skipped.
func (db *DB) PeekBatch(maxN int) ([]models.Operation, error) {
	var ops []models.Operation
	err := db.
		Where("next_attempt_at <= ?", time.Now().UTC()).
		Order("op_id asc").
		Limit(maxN).
		Find(&ops).Error
	if err != nil {
		return nil, fmt.Errorf("peek batch: %w", classify(err))
	}
	return ops, nil
}

// AckOp removes an operation after its remote write was confirmed. The
// delete is conditional on the version the caller pushed: if a newer
// mutation coalesced into the row while the old payload was in flight,
// the row is left queued and AckOp reports false, so the superseded
// state is acknowledged without ever dropping the unsent one. Acking an
// operation that is already gone is a no-op, so duplicate delivery of
// an acknowledgement cannot corrupt the queue.
func (db *DB) AckOp(opID int64, version int) (bool, error) {
	res := db.Where("op_id = ? AND version = ?", opID, version).Delete(&models.Operation{})
	if res.Error != nil {
		return false, fmt.Errorf("ack op %d: %w", opID, classify(res.Error))
	}
	return res.RowsAffected > 0, nil
}

// FailOp records a failed attempt: the operation stays queued with an
// incremented attempt count, the error message, and a next-eligible time
// pushed out by exponential backoff (base * 2^attempts, capped).
func (db *DB) FailOp(opID int64, opErr error) error {
	return db.Transaction(func(tx *DB) error {
		var op models.Operation
		if err := tx.First(&op, "op_id = ?", opID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("fail op %d: %w", opID, classify(err))
		}

		op.AttemptCount++
		if opErr != nil {
			op.LastError = opErr.Error()
		}
		op.NextAttemptAt = time.Now().UTC().Add(backoffDelay(op.AttemptCount, tx.backoffBase, tx.backoffMax))

		if err := tx.Save(&op).Error; err != nil {
			return fmt.Errorf("fail op %d: %w", opID, classify(err))
		}
		return nil
	})
}

// backoffDelay computes base * 2^attempts, capped at max.
func backoffDelay(attempts int, base, max time.Duration) time.Duration {
	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// ClearOutbox drops every live operation. Sign-out uses this together
// with the status reset: the queue is derived state, and the next
// session rebuilds it from entities marked unsynced.
func (db *DB) ClearOutbox() error {
	if err := db.Where("1 = 1").Delete(&models.Operation{}).Error; err != nil {
		return fmt.Errorf("clear outbox: %w", classify(err))
	}
	return nil
}

// QueueDepth returns the number of live operations in the outbox,
// including those waiting out a backoff window.
func (db *DB) QueueDepth() (int, error) {
	var n int64
	if err := db.Model(&models.Operation{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("queue depth: %w", classify(err))
	}
	return int(n), nil
}

// OpForEntity returns the live operation for one entity, or ErrNotFound.
func (db *DB) OpForEntity(t models.EntityType, id string) (*models.Operation, error) {
	var op models.Operation
	err := db.Where("entity_type = ? AND entity_id = ?", t, id).First(&op).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("op for %s %s: %w", t, id, classify(err))
	}
	return &op, nil
}

// RemoveOpForEntity drops the live operation for one entity, if any. The
// merge path uses this when a remote write wins last-write-wins over a
// still-pending local mutation.
func (db *DB) RemoveOpForEntity(t models.EntityType, id string) error {
	err := db.Where("entity_type = ? AND entity_id = ?", t, id).Delete(&models.Operation{}).Error
	if err != nil {
		return fmt.Errorf("remove op for %s %s: %w", t, id, classify(err))
	}
	return nil
}
