package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/macrolog/macrolog/internal/models"
)

// SaveEntity upserts an entity in a single transaction. Concurrent readers
// never observe a partially written record; the write either lands whole
// or not at all.
func (db *DB) SaveEntity(e models.Entity) error {
	if e.EntityID() == "" {
		return fmt.Errorf("save %s: empty entity id", e.Type())
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(e).Error
	if err != nil {
		return fmt.Errorf("save %s %s: %w", e.Type(), e.EntityID(), classify(err))
	}
	return nil
}

// FetchEntity loads one entity by type and id. Returns ErrNotFound when no
// record exists.
func (db *DB) FetchEntity(t models.EntityType, id string) (models.Entity, error) {
	e, ok := models.NewEntity(t)
	if !ok {
		return nil, models.ErrUnknownEntityType
	}
	err := db.First(e, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch %s %s: %w", t, id, classify(err))
	}
	return e, nil
}

// FetchAll loads every entity of one type. A non-nil owner restricts the
// result to that user's records; nil returns everything, including
// pre-login records with no owner.
func (db *DB) FetchAll(t models.EntityType, owner *string) ([]models.Entity, error) {
	q := db.DB
	if owner != nil {
		q = q.Where("owner_id = ?", *owner)
	}
	return db.fetchWhere(t, q)
}

// FetchUnowned loads entities of one type that have never been assigned an
// owner. These are the migration candidates: local data created before the
// first sign-in.
func (db *DB) FetchUnowned(t models.EntityType) ([]models.Entity, error) {
	return db.fetchWhere(t, db.Where("owner_id IS NULL"))
}

// FetchSyncedOlderThan loads entities of one type whose last modification
// predates cutoff and whose status is synced. Only already-backed-up
// records qualify; anything unsynced, pending, or failed is excluded so
// retention can never destroy the sole copy.
func (db *DB) FetchSyncedOlderThan(t models.EntityType, cutoff time.Time) ([]models.Entity, error) {
	return db.fetchWhere(t, db.
		Where("sync_status = ?", models.SyncSynced).
		Where("modified_at < ?", cutoff))
}

func (db *DB) fetchWhere(t models.EntityType, q *gorm.DB) ([]models.Entity, error) {
	var out []models.Entity
	switch t {
	case models.EntityDailyLog:
		var rows []models.DailyLog
		if err := q.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("fetch %s: %w", t, classify(err))
		}
		for i := range rows {
			out = append(out, &rows[i])
		}
	case models.EntityFoodItem:
		var rows []models.FoodItem
		if err := q.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("fetch %s: %w", t, classify(err))
		}
		for i := range rows {
			out = append(out, &rows[i])
		}
	case models.EntityExerciseItem:
		var rows []models.ExerciseItem
		if err := q.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("fetch %s: %w", t, classify(err))
		}
		for i := range rows {
			out = append(out, &rows[i])
		}
	case models.EntityCustomMeal:
		var rows []models.CustomMeal
		if err := q.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("fetch %s: %w", t, classify(err))
		}
		for i := range rows {
			out = append(out, &rows[i])
		}
	case models.EntityIngredient:
		var rows []models.Ingredient
		if err := q.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("fetch %s: %w", t, classify(err))
		}
		for i := range rows {
			out = append(out, &rows[i])
		}
	default:
		return nil, models.ErrUnknownEntityType
	}
	return out, nil
}

// FetchDailyLogByDate loads the log for one calendar day, or
// ErrNotFound when nothing was logged that day.
func (db *DB) FetchDailyLogByDate(date string) (*models.DailyLog, error) {
	var d models.DailyLog
	err := db.First(&d, "date = ?", date).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch daily log %s: %w", date, classify(err))
	}
	return &d, nil
}

// DeleteEntity removes an entity by type and id. Deleting a record that is
// already gone is not an error.
func (db *DB) DeleteEntity(t models.EntityType, id string) error {
	m, ok := models.NewEntity(t)
	if !ok {
		return models.ErrUnknownEntityType
	}
	if err := db.Where("id = ?", id).Delete(m).Error; err != nil {
		return fmt.Errorf("delete %s %s: %w", t, id, classify(err))
	}
	return nil
}

// SetEntityStatus updates only the sync status column of one entity.
func (db *DB) SetEntityStatus(t models.EntityType, id string, s models.SyncStatus) error {
	m, ok := models.NewEntity(t)
	if !ok {
		return models.ErrUnknownEntityType
	}
	err := db.Model(m).Where("id = ?", id).Update("sync_status", s).Error
	if err != nil {
		return fmt.Errorf("set status %s %s: %w", t, id, classify(err))
	}
	return nil
}

// AssignOwner sets the owner and sync status of one entity in a single
// update. Migration uses this after a confirmed upload.
func (db *DB) AssignOwner(t models.EntityType, id, userID string, s models.SyncStatus) error {
	m, ok := models.NewEntity(t)
	if !ok {
		return models.ErrUnknownEntityType
	}
	err := db.Model(m).Where("id = ?", id).Updates(map[string]interface{}{
		"owner_id":    userID,
		"sync_status": s,
	}).Error
	if err != nil {
		return fmt.Errorf("assign owner %s %s: %w", t, id, classify(err))
	}
	return nil
}

// ResetSyncStatus flips every entity of every type back to unsynced. It is
// a pure metadata update for sign-out: content and ownership are left
// untouched and nothing is deleted, so pre-login data survives and the
// next session re-evaluates what must be pushed.
func (db *DB) ResetSyncStatus() error {
	return db.Transaction(func(tx *DB) error {
		for _, t := range models.EntityTypes() {
			m, _ := models.NewEntity(t)
			if err := tx.Model(m).
				Where("sync_status <> ?", models.SyncUnsynced).
				Update("sync_status", models.SyncUnsynced).Error; err != nil {
				return fmt.Errorf("reset %s: %w", t, classify(err))
			}
		}
		return nil
	})
}

// CountEntities returns the number of records of one type.
func (db *DB) CountEntities(t models.EntityType) (int64, error) {
	m, ok := models.NewEntity(t)
	if !ok {
		return 0, models.ErrUnknownEntityType
	}
	var n int64
	if err := db.Model(m).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", t, classify(err))
	}
	return n, nil
}
