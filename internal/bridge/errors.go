package bridge

import (
	"errors"
	"fmt"
)

// ErrUnhealthy is returned without touching the sandbox once an instance has
// trapped. Recovery requires an explicit reload; there is no automatic
// respawn.
var ErrUnhealthy = errors.New("bridge: extension instance is unhealthy")

// RuntimeKind classifies a failure at the sandbox boundary.
type RuntimeKind string

const (
	// Trap is a sandbox fault: the subprocess died or the transport broke
	// mid-call. The instance is marked unhealthy.
	Trap RuntimeKind = "Trap"
	// Timeout means the call exceeded its deadline. The instance stays
	// healthy; only the in-flight call is abandoned.
	Timeout RuntimeKind = "Timeout"
	// HostIOError is a failure in host-side I/O performed on the guest's
	// behalf.
	HostIOError RuntimeKind = "HostIOError"
)

// GuestError is a failure the guest reported itself, as opposed to a
// sandbox fault. It does not affect instance health.
type GuestError struct {
	Message string
}

func (e *GuestError) Error() string { return e.Message }

// RuntimeError is the bridge-boundary conversion of anything that went wrong
// during a guest call. It never carries guest memory or host internals.
type RuntimeError struct {
	Kind      RuntimeKind
	Extension string
	Err       error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s in extension %q: %v", e.Kind, e.Extension, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
