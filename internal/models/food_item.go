package models

// FoodItem is a food the user has logged or saved, with nutrition per
// serving.
type FoodItem struct {
	ID   string `gorm:"primaryKey;size:64" json:"id"`
	Name string `gorm:"size:255;index" json:"name"`

	Brand       string  `gorm:"size:255" json:"brand,omitempty"`
	ServingSize float64 `json:"serving_size"`
	ServingUnit string  `gorm:"size:32" json:"serving_unit"` // g, ml, piece

	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
	FiberG   float64 `json:"fiber_g,omitempty"`
	SugarG   float64 `json:"sugar_g,omitempty"`
	SodiumMg float64 `json:"sodium_mg,omitempty"`

	Barcode string `gorm:"size:64;index" json:"barcode,omitempty"`

	SyncFields
}

// TableName specifies the table name for GORM.
func (FoodItem) TableName() string { return "food_items" }

// EntityID returns the stable client-generated identifier.
func (f *FoodItem) EntityID() string { return f.ID }

// Type returns the entity type tag.
func (f *FoodItem) Type() EntityType { return EntityFoodItem }
