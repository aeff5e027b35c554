package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/macrolog/macrolog/internal/models"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download your full remote dataset",
	Long: `Download every record in your account and merge it into the local
store. Newer local copies are kept; everything else takes the remote
version.`,
	Args: cobra.NoArgs,
	RunE: runPull,
}

func runPull(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return trackCLIError("pull", err)
	}
	defer eng.close()

	userID, err := eng.userID()
	if err != nil {
		return trackCLIError("pull", err)
	}
	eng.orchestrator.SetUser(userID)

	fmt.Printf("Downloading all data for %s...\n", userID)

	start := time.Now()
	if err := eng.orchestrator.DownloadAll(cmd.Context()); err != nil {
		return trackCLIError("pull", err)
	}

	var total int64
	for _, t := range models.EntityTypes() {
		n, err := eng.database.CountEntities(t)
		if err != nil {
			return trackCLIError("pull", fmt.Errorf("count %s: %w", t, err))
		}
		total += n
	}

	telemetryClient.TrackDownloadAll(int(total), time.Since(start).Milliseconds())

	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	fmt.Printf("%s Done. %d local record(s).\n", successStyle.Render("v"), total)
	return nil
}
