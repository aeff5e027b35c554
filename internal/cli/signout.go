package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and keep all local data",
	Long: `Sign out of your account.

Nothing is deleted: every record stays on this device. Sync statuses
are reset so the next sign-in re-evaluates what needs uploading.`,
	Args: cobra.NoArgs,
	RunE: runSignout,
}

func runSignout(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return trackCLIError("signout", err)
	}
	defer eng.close()

	depth, err := eng.database.QueueDepth()
	if err != nil {
		return trackCLIError("signout", fmt.Errorf("queue depth: %w", err))
	}

	if err := eng.orchestrator.SignOut(); err != nil {
		return trackCLIError("signout", err)
	}
	telemetryClient.TrackSignOut(depth)

	fmt.Println("Signed out. All local data is preserved.")
	if depth > 0 {
		fmt.Printf("Note: %d queued change(s) had not been uploaded; they will be re-evaluated on next sign-in.\n", depth)
	}
	fmt.Println("Unset MACROLOG_USER_ID and MACROLOG_TOKEN to finish.")
	return nil
}
