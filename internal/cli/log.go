package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/macrolog/macrolog/internal/db"
	"github.com/macrolog/macrolog/internal/models"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log food or exercise for today",
	Long: `Log food or exercise entries.

Entries are written locally first and queued for upload; they sync in
the background once you are online and signed in.`,
}

var logFoodCmd = &cobra.Command{
	Use:   "food <name>",
	Short: "Log a food entry",
	Long: `Log a food entry for today.

Examples:
  macrolog log food "oatmeal" --calories 150 --protein 5 --carbs 27 --fat 3
  macrolog log food "chicken breast" --calories 165 --protein 31 --date 2026-08-24`,
	Args: cobra.ExactArgs(1),
	RunE: runLogFood,
}

var logExerciseCmd = &cobra.Command{
	Use:   "exercise <name>",
	Short: "Log an exercise entry",
	Long: `Log an exercise entry for today.

Examples:
  macrolog log exercise "running" --minutes 30 --calories 300`,
	Args: cobra.ExactArgs(1),
	RunE: runLogExercise,
}

var (
	logCalories float64
	logProtein  float64
	logCarbs    float64
	logFat      float64
	logMinutes  int
	logDate     string
)

func init() {
	logFoodCmd.Flags().Float64Var(&logCalories, "calories", 0, "calories (kcal)")
	logFoodCmd.Flags().Float64Var(&logProtein, "protein", 0, "protein (g)")
	logFoodCmd.Flags().Float64Var(&logCarbs, "carbs", 0, "carbohydrates (g)")
	logFoodCmd.Flags().Float64Var(&logFat, "fat", 0, "fat (g)")
	logFoodCmd.Flags().StringVar(&logDate, "date", "", "log date (YYYY-MM-DD, default today)")

	logExerciseCmd.Flags().IntVar(&logMinutes, "minutes", 0, "duration in minutes")
	logExerciseCmd.Flags().Float64Var(&logCalories, "calories", 0, "calories burned (kcal)")
	logExerciseCmd.Flags().StringVar(&logDate, "date", "", "log date (YYYY-MM-DD, default today)")

	logCmd.AddCommand(logFoodCmd)
	logCmd.AddCommand(logExerciseCmd)
}

func runLogFood(cmd *cobra.Command, args []string) error {
	return logEntry("food", models.LogEntry{
		EntryID:  models.NewEntityID(),
		ItemType: "food",
		Name:     args[0],
		Servings: 1,
		Calories: logCalories,
		ProteinG: logProtein,
		CarbsG:   logCarbs,
		FatG:     logFat,
	})
}

func runLogExercise(cmd *cobra.Command, args []string) error {
	return logEntry("exercise", models.LogEntry{
		EntryID:      models.NewEntityID(),
		ItemType:     "exercise",
		Name:         args[0],
		Calories:     logCalories,
		DurationMins: float64(logMinutes),
	})
}

// logEntry appends one entry to the day's log and queues it for upload.
func logEntry(cmdName string, entry models.LogEntry) error {
	date, err := resolveDate()
	if err != nil {
		return trackCLIError(cmdName, err)
	}

	cfg, database, err := openDatabase()
	if err != nil {
		return trackCLIError(cmdName, err)
	}
	defer func() { _ = database.Close() }()

	dayLog, err := loadOrCreateDailyLog(database, date)
	if err != nil {
		return trackCLIError(cmdName, err)
	}

	entries, err := dayLog.DecodeEntries()
	if err != nil {
		return trackCLIError(cmdName, fmt.Errorf("decode log entries: %w", err))
	}
	entries = append(entries, entry)
	if err := dayLog.SetEntries(entries); err != nil {
		return trackCLIError(cmdName, fmt.Errorf("encode log entries: %w", err))
	}

	if cfg.Remote.UserID != "" {
		dayLog.SetOwner(cfg.Remote.UserID)
	}

	kind := models.OpUpdate
	if len(entries) == 1 {
		kind = models.OpCreate
	}
	if err := database.SaveAndEnqueue(dayLog, kind); err != nil {
		return trackCLIError(cmdName, fmt.Errorf("save daily log: %w", err))
	}

	telemetryClient.TrackEntityLogged(string(models.EntityDailyLog))

	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	fmt.Printf("%s Logged %s for %s", successStyle.Render("v"), entry.Name, date)
	if entry.Calories > 0 {
		fmt.Printf(" (%.0f kcal)", entry.Calories)
	}
	fmt.Println()
	return nil
}

// loadOrCreateDailyLog returns the existing log for the date or a fresh
// one with a new entity id.
func loadOrCreateDailyLog(database *db.DB, date string) (*models.DailyLog, error) {
	dayLog, err := database.FetchDailyLogByDate(date)
	if err == nil {
		return dayLog, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	return &models.DailyLog{
		ID:   models.NewEntityID(),
		Date: date,
	}, nil
}

func resolveDate() (string, error) {
	if logDate == "" {
		return time.Now().Format("2006-01-02"), nil
	}
	if _, err := time.Parse("2006-01-02", logDate); err != nil {
		return "", fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", logDate)
	}
	return logDate, nil
}
