package models

// MigrationResult reports the outcome of a first-login migration pass.
// It is produced once per attempt and not persisted; the caller decides
// whether a partial failure warrants a retry.
type MigrationResult struct {
	FoodItemsCount     int `json:"food_items_count"`
	DailyLogsCount     int `json:"daily_logs_count"`
	CustomMealsCount   int `json:"custom_meals_count"`
	ExerciseItemsCount int `json:"exercise_items_count"`
	IngredientsCount   int `json:"ingredients_count"`
	TotalCount         int `json:"total_count"`
	FailedCount        int `json:"failed_count"`
}

// Record counts one successfully migrated entity of the given type.
func (r *MigrationResult) Record(t EntityType) {
	switch t {
	case EntityFoodItem:
		r.FoodItemsCount++
	case EntityDailyLog:
		r.DailyLogsCount++
	case EntityCustomMeal:
		r.CustomMealsCount++
	case EntityExerciseItem:
		r.ExerciseItemsCount++
	case EntityIngredient:
		r.IngredientsCount++
	}
	r.TotalCount++
}

// Success reports a clean migration of at least one entity. An empty
// store (nothing to migrate) is handled separately by the caller via
// TotalCount == 0, which is not an error.
func (r *MigrationResult) Success() bool {
	return r.FailedCount == 0 && r.TotalCount > 0
}
