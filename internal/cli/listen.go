package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/macrolog/macrolog/internal/retention"
	syncpkg "github.com/macrolog/macrolog/internal/sync"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run a foreground sync session",
	Long: `Follow your account's change feed and drain the upload queue until
interrupted.

While listening, remote edits from other devices merge into the local
store as they happen and queued local changes upload in the background.
Old records that are safely backed up are pruned shortly after start.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func runListen(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return trackCLIError("listen", err)
	}
	defer eng.close()

	userID, err := eng.userID()
	if err != nil {
		return trackCLIError("listen", err)
	}

	start := time.Now()
	telemetryClient.TrackAppStarted("listen")
	defer func() {
		telemetryClient.TrackAppExited("listen", time.Since(start).Milliseconds())
	}()

	pruner := retention.New(eng.database, retention.Config{
		Horizon:     eng.cfg.Retention.Horizon,
		LaunchDelay: eng.cfg.Retention.LaunchDelay,
		OnPruned:    telemetryClient.TrackRetentionPruned,
	})
	pruner.ScheduleOnLaunch()
	defer pruner.Stop()

	eng.orchestrator.StartListening(cmd.Context(), userID)

	states := eng.orchestrator.Subscribe()
	defer eng.orchestrator.Unsubscribe(states)

	fmt.Printf("Listening for changes as %s. Ctrl-C to stop.\n", userID)

	var last syncpkg.SessionState
	for {
		select {
		case <-cmd.Context().Done():
			fmt.Println("\nStopping...")
			return nil
		case s := <-states:
			if s.State != last.State || s.QueueDepth != last.QueueDepth {
				printSessionState(s)
			}
			last = s
		}
	}
}

func printSessionState(s syncpkg.SessionState) {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	ts := time.Now().Format("15:04:05")
	switch s.State {
	case syncpkg.StateError:
		fmt.Printf("%s %s %s\n", dimStyle.Render(ts), errorStyle.Render("error"), s.ErrorMessage)
	case syncpkg.StateOffline:
		fmt.Printf("%s %s waiting for network\n", dimStyle.Render(ts), warnStyle.Render("offline"))
	default:
		line := string(s.State)
		if s.QueueDepth > 0 {
			line = fmt.Sprintf("%s (%d queued)", line, s.QueueDepth)
		}
		fmt.Printf("%s %s\n", dimStyle.Render(ts), line)
	}
}
