package telemetry

import (
	"runtime"

	"github.com/macrolog/macrolog/pkg/version"
)

// Event names - CLI
const (
	EventAppStarted         = "app_started"
	EventAppExited          = "app_exited"
	EventCLICommandExecuted = "cli_command_executed"
	EventCLIErrorOccurred   = "cli_error_occurred"
)

// Event names - Sync
const (
	EventEntityLogged       = "entity_logged"
	EventSyncForced         = "sync_forced"
	EventDownloadAll        = "download_all"
	EventMigrationCompleted = "migration_completed"
	EventSignOut            = "sign_out"
	EventRetentionPruned    = "retention_pruned"
)

// Version is set at compile time via ldflags.
var Version string

// baseProperties returns common properties for all events.
func baseProperties() map[string]interface{} {
	return map[string]interface{}{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"version":    Version,
		"prerelease": version.IsPrerelease(),
		"dev_build":  version.IsDevBuild(),
	}
}

// TrackAppStarted tracks application startup.
func (c *posthogClient) TrackAppStarted(mode string) {
	props := baseProperties()
	props["mode"] = mode
	c.Track(EventAppStarted, props)
}

// TrackAppExited tracks application exit.
func (c *posthogClient) TrackAppExited(mode string, sessionDurationMs int64) {
	props := baseProperties()
	props["mode"] = mode
	props["session_duration_ms"] = sessionDurationMs
	c.Track(EventAppExited, props)
}

// TrackCLICommandExecuted tracks CLI command execution.
func (c *posthogClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
	props := baseProperties()
	props["command_name"] = commandName
	props["has_flags"] = hasFlags
	props["execution_duration_ms"] = durationMs
	c.Track(EventCLICommandExecuted, props)
}

// TrackCLIError tracks CLI command failures. Only the error type is
// recorded, never the message, which can contain file paths.
func (c *posthogClient) TrackCLIError(commandName, errorType string) {
	props := baseProperties()
	props["command_name"] = commandName
	props["error_type"] = errorType
	c.Track(EventCLIErrorOccurred, props)
}

// TrackEntityLogged tracks a local entity write. Only the entity type
// is recorded, never its content.
func (c *posthogClient) TrackEntityLogged(entityType string) {
	props := baseProperties()
	props["entity_type"] = entityType
	c.Track(EventEntityLogged, props)
}

// TrackSyncForced tracks a user-initiated sync pass.
func (c *posthogClient) TrackSyncForced(queueDepth int, durationMs int64, outcome string) {
	props := baseProperties()
	props["queue_depth"] = queueDepth
	props["duration_ms"] = durationMs
	props["outcome"] = outcome
	c.Track(EventSyncForced, props)
}

// TrackDownloadAll tracks a full remote snapshot download.
func (c *posthogClient) TrackDownloadAll(entityCount int, durationMs int64) {
	props := baseProperties()
	props["entity_count"] = entityCount
	props["duration_ms"] = durationMs
	c.Track(EventDownloadAll, props)
}

// TrackMigrationCompleted tracks a first-login migration pass.
func (c *posthogClient) TrackMigrationCompleted(totalCount, failedCount int, durationMs int64) {
	props := baseProperties()
	props["total_count"] = totalCount
	props["failed_count"] = failedCount
	props["duration_ms"] = durationMs
	c.Track(EventMigrationCompleted, props)
}

// TrackSignOut tracks a sign-out, with the queue depth left behind.
func (c *posthogClient) TrackSignOut(queueDepth int) {
	props := baseProperties()
	props["queue_depth"] = queueDepth
	c.Track(EventSignOut, props)
}

// TrackRetentionPruned tracks a retention pass.
func (c *posthogClient) TrackRetentionPruned(prunedCount int) {
	props := baseProperties()
	props["pruned_count"] = prunedCount
	c.Track(EventRetentionPruned, props)
}

// --- noop implementations ---

func (c *noopClient) TrackAppStarted(mode string)                                          {}
func (c *noopClient) TrackAppExited(mode string, sessionDurationMs int64)                  {}
func (c *noopClient) TrackCLICommandExecuted(commandName string, hasFlags bool, d int64)   {}
func (c *noopClient) TrackCLIError(commandName, errorType string)                          {}
func (c *noopClient) TrackEntityLogged(entityType string)                                  {}
func (c *noopClient) TrackSyncForced(queueDepth int, durationMs int64, outcome string)     {}
func (c *noopClient) TrackDownloadAll(entityCount int, durationMs int64)                   {}
func (c *noopClient) TrackMigrationCompleted(totalCount, failedCount int, durationMs int64) {}
func (c *noopClient) TrackSignOut(queueDepth int)                                          {}
func (c *noopClient) TrackRetentionPruned(prunedCount int)                                 {}
