package db

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/macrolog/macrolog/internal/models"
)

// GetSyncMeta retrieves a sync metadata value.
func (db *DB) GetSyncMeta(key string) (string, error) {
	var meta models.SyncMeta
	err := db.First(&meta, "key = ?", key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", classify(err)
	}
	return meta.Value, nil
}

// SetSyncMeta sets a sync metadata value.
func (db *DB) SetSyncMeta(key, value string) error {
	meta := models.SyncMeta{Key: key, Value: value}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
}

// GetOrCreateTrackingID returns the persistent anonymous tracking ID,
// creating one on first use.
func (db *DB) GetOrCreateTrackingID() string {
	id, err := db.GetSyncMeta(models.SyncMetaTrackingID)
	if err == nil && id != "" {
		return id
	}
	id = uuid.New().String()
	if err := db.SetSyncMeta(models.SyncMetaTrackingID, id); err != nil {
		return uuid.New().String()
	}
	return id
}

// GetAllSyncMeta retrieves all sync metadata.
func (db *DB) GetAllSyncMeta() (map[string]string, error) {
	var metas []models.SyncMeta
	if err := db.Find(&metas).Error; err != nil {
		return nil, classify(err)
	}

	result := make(map[string]string)
	for _, meta := range metas {
		result[meta.Key] = meta.Value
	}
	return result, nil
}
