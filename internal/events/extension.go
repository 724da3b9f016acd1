package events

import "time"

// ExtensionLoadStart is emitted before an extension bundle is loaded.
type ExtensionLoadStart struct {
	Extension string
}

// ExtensionLoadFinish is emitted after a load attempt, failed or not.
type ExtensionLoadFinish struct {
	Extension string
	Err       error
	Duration  time.Duration
}

// ResolveStart is emitted before dispatching a field resolution into an
// extension sandbox.
type ResolveStart struct {
	Extension string
	Type      string
	Field     string
}

// ResolveFinish is emitted after the dispatched call returns.
type ResolveFinish struct {
	Extension string
	Type      string
	Field     string
	Err       error
	Duration  time.Duration
}

// ExtensionUnhealthy is emitted once, when a sandbox trap permanently marks
// an extension instance unhealthy.
type ExtensionUnhealthy struct {
	Extension string
}

// GuestLog is emitted when a sandboxed extension writes a log line through
// the host capability surface.
type GuestLog struct {
	Extension string
	Level     string
	Message   string
}
