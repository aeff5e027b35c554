package models

import "encoding/json"

// LogEntry is a single logged item within a day: a food portion or an
// exercise session, snapshotted at logging time so later edits to the
// catalog item do not rewrite history.
type LogEntry struct {
	EntryID      string  `json:"entry_id"`
	ItemID       string  `json:"item_id"`
	ItemType     string  `json:"item_type"` // "food" or "exercise"
	Name         string  `json:"name"`
	Meal         string  `json:"meal,omitempty"` // breakfast/lunch/dinner/snack
	Servings     float64 `json:"servings,omitempty"`
	Calories     float64 `json:"calories"`
	ProteinG     float64 `json:"protein_g,omitempty"`
	CarbsG       float64 `json:"carbs_g,omitempty"`
	FatG         float64 `json:"fat_g,omitempty"`
	DurationMins float64 `json:"duration_mins,omitempty"`
}

// DailyLog is one calendar day of logged food and exercise.
type DailyLog struct {
	ID   string `gorm:"primaryKey;size:64" json:"id"`
	Date string `gorm:"size:10;index" json:"date"` // "2006-01-02"

	// Entries are stored as a JSON document; the log is the unit of sync,
	// not the individual entry (last-write-wins at day granularity).
	Entries json.RawMessage `gorm:"type:text" json:"entries"`

	CaloriesIn     float64 `json:"calories_in"`
	CaloriesBurned float64 `json:"calories_burned"`
	ProteinG       float64 `json:"protein_g"`
	CarbsG         float64 `json:"carbs_g"`
	FatG           float64 `json:"fat_g"`

	SyncFields
}

// TableName specifies the table name for GORM.
func (DailyLog) TableName() string { return "daily_logs" }

// EntityID returns the stable client-generated identifier.
func (d *DailyLog) EntityID() string { return d.ID }

// Type returns the entity type tag.
func (d *DailyLog) Type() EntityType { return EntityDailyLog }

// DecodeEntries unmarshals the entries document.
func (d *DailyLog) DecodeEntries() ([]LogEntry, error) {
	if len(d.Entries) == 0 {
		return nil, nil
	}
	var entries []LogEntry
	if err := json.Unmarshal(d.Entries, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SetEntries marshals entries into the stored document and recomputes the
// day's totals.
func (d *DailyLog) SetEntries(entries []LogEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	d.Entries = raw

	d.CaloriesIn, d.CaloriesBurned = 0, 0
	d.ProteinG, d.CarbsG, d.FatG = 0, 0, 0
	for _, e := range entries {
		if e.ItemType == "exercise" {
			d.CaloriesBurned += e.Calories
			continue
		}
		d.CaloriesIn += e.Calories
		d.ProteinG += e.ProteinG
		d.CarbsG += e.CarbsG
		d.FatG += e.FatG
	}
	return nil
}
