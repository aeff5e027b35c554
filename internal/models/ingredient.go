package models

// Ingredient is a raw component used to build custom meals, with
// nutrition per base unit.
type Ingredient struct {
	ID   string `gorm:"primaryKey;size:64" json:"id"`
	Name string `gorm:"size:255;index" json:"name"`

	Unit       string  `gorm:"size:32" json:"unit"` // g, ml, piece
	PerUnit    float64 `json:"per_unit"`            // amount the nutrition values describe
	Calories   float64 `json:"calories"`
	ProteinG   float64 `json:"protein_g"`
	CarbsG     float64 `json:"carbs_g"`
	FatG       float64 `json:"fat_g"`
	CategoryID string  `gorm:"size:64;index" json:"category_id,omitempty"`

	SyncFields
}

// TableName specifies the table name for GORM.
func (Ingredient) TableName() string { return "ingredients" }

// EntityID returns the stable client-generated identifier.
func (i *Ingredient) EntityID() string { return i.ID }

// Type returns the entity type tag.
func (i *Ingredient) Type() EntityType { return EntityIngredient }
