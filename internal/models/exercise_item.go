package models

// ExerciseItem is an exercise the user has logged or saved, with the
// energy cost of one session.
type ExerciseItem struct {
	ID   string `gorm:"primaryKey;size:64" json:"id"`
	Name string `gorm:"size:255;index" json:"name"`

	DurationMins   float64 `json:"duration_mins"`
	CaloriesBurned float64 `json:"calories_burned"`
	Intensity      string  `gorm:"size:20" json:"intensity,omitempty"` // light/moderate/vigorous
	Notes          string  `gorm:"size:1000" json:"notes,omitempty"`

	SyncFields
}

// TableName specifies the table name for GORM.
func (ExerciseItem) TableName() string { return "exercise_items" }

// EntityID returns the stable client-generated identifier.
func (e *ExerciseItem) EntityID() string { return e.ID }

// Type returns the entity type tag.
func (e *ExerciseItem) Type() EntityType { return EntityExerciseItem }
