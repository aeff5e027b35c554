package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/macrolog/macrolog/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local data and sync queue status",
	Long: `Show local record counts, pending upload queue depth, and when the
last successful sync finished.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, database, err := openDatabase()
	if err != nil {
		return trackCLIError("status", err)
	}
	defer func() { _ = database.Close() }()

	headerStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	fmt.Println(headerStyle.Render("MACROLOG STATUS"))
	fmt.Println("──────────────────────────────────────────────────")

	if cfg.Remote.UserID != "" {
		fmt.Printf("Account:    %s\n", cfg.Remote.UserID)
	} else {
		fmt.Printf("Account:    %s\n", dimStyle.Render("not signed in (local only)"))
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Local records"))
	for _, t := range models.EntityTypes() {
		n, err := database.CountEntities(t)
		if err != nil {
			return trackCLIError("status", fmt.Errorf("count %s: %w", t, err))
		}
		fmt.Printf("  %-16s %d\n", t, n)
	}

	depth, err := database.QueueDepth()
	if err != nil {
		return trackCLIError("status", fmt.Errorf("queue depth: %w", err))
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Sync"))
	fmt.Printf("  pending uploads  %d\n", depth)

	lastSync, err := database.GetSyncMeta(models.SyncMetaLastFullSync)
	if err != nil {
		return trackCLIError("status", fmt.Errorf("read sync meta: %w", err))
	}
	if lastSync == "" {
		lastSync = dimStyle.Render("never")
	}
	fmt.Printf("  last sync        %s\n", lastSync)

	lastRetention, err := database.GetSyncMeta(models.SyncMetaRetentionLastRun)
	if err != nil {
		return trackCLIError("status", fmt.Errorf("read sync meta: %w", err))
	}
	if lastRetention == "" {
		lastRetention = dimStyle.Render("never")
	}
	fmt.Printf("  last retention   %s\n", lastRetention)

	return nil
}
