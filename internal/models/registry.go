package models

import "encoding/json"

// NewEntity returns a zero value of the concrete type for t.
func NewEntity(t EntityType) (Entity, bool) {
	switch t {
	case EntityDailyLog:
		return &DailyLog{}, true
	case EntityFoodItem:
		return &FoodItem{}, true
	case EntityExerciseItem:
		return &ExerciseItem{}, true
	case EntityCustomMeal:
		return &CustomMeal{}, true
	case EntityIngredient:
		return &Ingredient{}, true
	}
	return nil, false
}

// DecodeEntity unmarshals a payload snapshot into the concrete type for t.
func DecodeEntity(t EntityType, payload []byte) (Entity, error) {
	e, ok := NewEntity(t)
	if !ok {
		return nil, ErrUnknownEntityType
	}
	if err := json.Unmarshal(payload, e); err != nil {
		return nil, err
	}
	return e, nil
}

// EncodeEntity marshals an entity into a payload snapshot.
func EncodeEntity(e Entity) (json.RawMessage, error) {
	return json.Marshal(e)
}
