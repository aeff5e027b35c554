package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/macrolog/macrolog/internal/migration"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move pre-login local data into your account",
	Long: `Upload local records created before you signed in to your account.

Safe to run again after an interruption: records already migrated are
skipped and only the remainder uploads.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return trackCLIError("migrate", err)
	}
	defer eng.close()

	userID, err := eng.userID()
	if err != nil {
		return trackCLIError("migrate", err)
	}

	service := migration.New(eng.database, eng.client)

	start := time.Now()
	result, err := service.MigrateLocalData(cmd.Context(), userID)
	if err != nil {
		return trackCLIError("migrate", err)
	}
	telemetryClient.TrackMigrationCompleted(result.TotalCount, result.FailedCount, time.Since(start).Milliseconds())

	if result.TotalCount == 0 && result.FailedCount == 0 {
		fmt.Println("Nothing to migrate.")
		return nil
	}

	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	fmt.Printf("%s Migrated %d record(s) to %s\n", successStyle.Render("v"), result.TotalCount, userID)
	if result.DailyLogsCount > 0 {
		fmt.Printf("  daily logs      %d\n", result.DailyLogsCount)
	}
	if result.FoodItemsCount > 0 {
		fmt.Printf("  food items      %d\n", result.FoodItemsCount)
	}
	if result.ExerciseItemsCount > 0 {
		fmt.Printf("  exercise items  %d\n", result.ExerciseItemsCount)
	}
	if result.CustomMealsCount > 0 {
		fmt.Printf("  custom meals    %d\n", result.CustomMealsCount)
	}
	if result.IngredientsCount > 0 {
		fmt.Printf("  ingredients     %d\n", result.IngredientsCount)
	}
	if result.FailedCount > 0 {
		fmt.Printf("%s %d record(s) failed; run 'macrolog migrate' again to retry.\n",
			errorStyle.Render("x"), result.FailedCount)
	}
	return nil
}
