package models

import "encoding/json"

// MealComponent references an ingredient or food item within a custom
// meal, with the amount used.
type MealComponent struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g,omitempty"`
	CarbsG   float64 `json:"carbs_g,omitempty"`
	FatG     float64 `json:"fat_g,omitempty"`
}

// CustomMeal is a user-composed recipe built from ingredients and food
// items, logged as a single unit.
type CustomMeal struct {
	ID   string `gorm:"primaryKey;size:64" json:"id"`
	Name string `gorm:"size:255;index" json:"name"`

	Components json.RawMessage `gorm:"type:text" json:"components"`
	Servings   float64         `json:"servings"`

	TotalCalories float64 `json:"total_calories"`
	TotalProteinG float64 `json:"total_protein_g"`
	TotalCarbsG   float64 `json:"total_carbs_g"`
	TotalFatG     float64 `json:"total_fat_g"`

	SyncFields
}

// TableName specifies the table name for GORM.
func (CustomMeal) TableName() string { return "custom_meals" }

// EntityID returns the stable client-generated identifier.
func (m *CustomMeal) EntityID() string { return m.ID }

// Type returns the entity type tag.
func (m *CustomMeal) Type() EntityType { return EntityCustomMeal }

// DecodeComponents unmarshals the components document.
func (m *CustomMeal) DecodeComponents() ([]MealComponent, error) {
	if len(m.Components) == 0 {
		return nil, nil
	}
	var comps []MealComponent
	if err := json.Unmarshal(m.Components, &comps); err != nil {
		return nil, err
	}
	return comps, nil
}

// SetComponents marshals components into the stored document and
// recomputes the meal totals.
func (m *CustomMeal) SetComponents(comps []MealComponent) error {
	raw, err := json.Marshal(comps)
	if err != nil {
		return err
	}
	m.Components = raw

	m.TotalCalories, m.TotalProteinG, m.TotalCarbsG, m.TotalFatG = 0, 0, 0, 0
	for _, c := range comps {
		m.TotalCalories += c.Calories
		m.TotalProteinG += c.ProteinG
		m.TotalCarbsG += c.CarbsG
		m.TotalFatG += c.FatG
	}
	return nil
}
