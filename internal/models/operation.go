package models

import (
	"encoding/json"
	"time"
)

// OpKind is the kind of a queued mutation.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Operation is one pending mutation in the durable outbox, awaiting
// upload to the remote store. At most one live operation exists per
// entity; a newer local mutation coalesces into the existing row.
type Operation struct {
	OpID       int64           `gorm:"primaryKey;autoIncrement" json:"op_id"`
	EntityType EntityType      `gorm:"size:32;uniqueIndex:idx_outbox_entity" json:"entity_type"`
	EntityID   string          `gorm:"size:64;uniqueIndex:idx_outbox_entity" json:"entity_id"`
	Kind       OpKind          `gorm:"size:10" json:"kind"`
	Payload    json.RawMessage `gorm:"type:text" json:"payload"`

	// Version is bumped every time a newer mutation coalesces into this
	// row. Acks are conditional on it, so a payload replaced while its
	// predecessor was in flight is never deleted unsent.
	Version int `gorm:"default:0" json:"version"`

	EnqueuedAt    time.Time `json:"enqueued_at"`
	AttemptCount  int       `gorm:"default:0" json:"attempt_count"`
	LastError     string    `gorm:"size:1000" json:"last_error"`
	NextAttemptAt time.Time `gorm:"index" json:"next_attempt_at"`
}

// TableName specifies the table name for GORM.
func (Operation) TableName() string { return "outbox_operations" }

// SyncMeta stores sync bookkeeping as key-value pairs.
type SyncMeta struct {
	Key       string    `gorm:"primaryKey;size:50" json:"key"`
	Value     string    `gorm:"size:255" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (SyncMeta) TableName() string { return "sync_meta" }

// Sync metadata keys.
const (
	SyncMetaLastFullSync     = "last_full_sync"
	SyncMetaLastDeltaCursor  = "last_delta_cursor"
	SyncMetaSchemaVersion    = "schema_version"
	SyncMetaRetentionLastRun = "retention_last_run"
	SyncMetaTrackingID       = "tracking_id"
)
