// Package models defines the core data structures for Macrolog.
package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityType identifies one of the syncable entity kinds. The value doubles
// as the remote collection name for that kind.
type EntityType string

const (
	EntityDailyLog     EntityType = "daily_logs"
	EntityFoodItem     EntityType = "food_items"
	EntityExerciseItem EntityType = "exercise_items"
	EntityCustomMeal   EntityType = "custom_meals"
	EntityIngredient   EntityType = "ingredients"
)

// EntityTypes returns all syncable entity types in a stable order.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityDailyLog,
		EntityFoodItem,
		EntityExerciseItem,
		EntityCustomMeal,
		EntityIngredient,
	}
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityDailyLog, EntityFoodItem, EntityExerciseItem, EntityCustomMeal, EntityIngredient:
		return true
	}
	return false
}

// SyncStatus tracks whether a local record has been confirmed in the
// remote store.
type SyncStatus string

const (
	SyncUnsynced SyncStatus = "unsynced"
	SyncPending  SyncStatus = "pending"
	SyncSynced   SyncStatus = "synced"
	SyncFailed   SyncStatus = "failed"
)

// SyncFields carries the sync bookkeeping shared by every syncable entity.
// OwnerID stays nil until migration assigns one; an entity with no owner is
// never pushed to the remote store.
type SyncFields struct {
	OwnerID    *string    `gorm:"size:128;index" json:"owner_id"`
	SyncStatus SyncStatus `gorm:"size:16;default:unsynced;index" json:"sync_status"`
	ModifiedAt time.Time  `gorm:"index" json:"modified_at"`
}

// Owner returns the owner user ID, nil if the entity predates sign-in.
func (f *SyncFields) Owner() *string { return f.OwnerID }

// SetOwner assigns the owner user ID.
func (f *SyncFields) SetOwner(userID string) { f.OwnerID = &userID }

// Status returns the current sync status.
func (f *SyncFields) Status() SyncStatus { return f.SyncStatus }

// SetStatus updates the sync status tag.
func (f *SyncFields) SetStatus(s SyncStatus) { f.SyncStatus = s }

// LastModified returns the last local modification time.
func (f *SyncFields) LastModified() time.Time { return f.ModifiedAt }

// Touch stamps the entity as modified now.
func (f *SyncFields) Touch() { f.ModifiedAt = time.Now().UTC() }

// Entity is implemented by all five syncable entity kinds.
type Entity interface {
	EntityID() string
	Type() EntityType
	Owner() *string
	SetOwner(userID string)
	Status() SyncStatus
	SetStatus(s SyncStatus)
	LastModified() time.Time
	Touch()
}

// NewEntityID generates a client-side globally unique identifier.
func NewEntityID() string {
	return uuid.New().String()
}
