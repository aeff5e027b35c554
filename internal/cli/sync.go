package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	syncpkg "github.com/macrolog/macrolog/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push queued changes to your account now",
	Long: `Push all queued local changes to the remote store immediately.

Changes normally upload in the background; sync forces a full pass and
reports anything left behind.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return trackCLIError("sync", err)
	}
	defer eng.close()

	userID, err := eng.userID()
	if err != nil {
		return trackCLIError("sync", err)
	}
	eng.orchestrator.SetUser(userID)

	depth, err := eng.database.QueueDepth()
	if err != nil {
		return trackCLIError("sync", fmt.Errorf("queue depth: %w", err))
	}
	if depth == 0 {
		fmt.Println("Nothing to sync.")
		return nil
	}

	fmt.Printf("Syncing %d queued change(s)...\n", depth)

	start := time.Now()
	err = eng.orchestrator.ForceSyncNow(cmd.Context())
	durationMs := time.Since(start).Milliseconds()

	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	var qerr *syncpkg.QueueError
	switch {
	case err == nil:
		telemetryClient.TrackSyncForced(depth, durationMs, "success")
		fmt.Printf("%s All changes uploaded.\n", successStyle.Render("v"))
		return nil
	case errors.As(err, &qerr):
		telemetryClient.TrackSyncForced(depth, durationMs, "partial")
		fmt.Printf("%s %d change(s) could not be uploaded; they stay queued and will retry.\n",
			errorStyle.Render("x"), qerr.Remaining)
		return trackCLIError("sync", err)
	case errors.Is(err, syncpkg.ErrNetworkUnavailable):
		telemetryClient.TrackSyncForced(depth, durationMs, "offline")
		fmt.Println("Network unavailable. Changes stay queued and upload when you are back online.")
		return nil
	default:
		telemetryClient.TrackSyncForced(depth, durationMs, "error")
		return trackCLIError("sync", err)
	}
}
