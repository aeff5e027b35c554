package sync

import (
	"fmt"

	"github.com/macrolog/macrolog/internal/remote"
)

// Transport and auth failures reuse the remote package's sentinels so
// callers can errors.Is against a single identity wherever the failure
// surfaced.
var (
	ErrNetworkUnavailable = remote.ErrNetworkUnavailable
	ErrNotAuthenticated   = remote.ErrNotAuthenticated
)

// QueueError reports that a forced sync finished with operations still
// in the outbox. Remaining counts the live operations left behind; they
// stay queued and retry on their own schedule.
type QueueError struct {
	Remaining int
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("queue processing failed: %d operation(s) remaining", e.Remaining)
}
