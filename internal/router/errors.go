package router

import "fmt"

// ResolutionKind classifies a failed field resolution.
type ResolutionKind string

const (
	// UnknownField means no extension owns the requested field. That is a
	// registration bug, fatal to the single query only.
	UnknownField ResolutionKind = "UnknownField"
	// ExtensionUnavailable means the owner trapped earlier and is marked
	// unhealthy. No retry is attempted.
	ExtensionUnavailable ResolutionKind = "ExtensionUnavailable"
	// ResolutionFailed covers everything that went wrong during the
	// dispatched call itself: a guest-reported error, a trap or a timeout.
	ResolutionFailed ResolutionKind = "ResolutionFailed"
)

// ResolutionError is what the execution engine sees for a failed field. The
// message names the kind and the extension, never host internals.
type ResolutionError struct {
	Kind      ResolutionKind
	Type      string
	Field     string
	Extension string
	Err       error
}

func (e *ResolutionError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("%s: %s.%s", e.Kind, e.Type, e.Field)
	}
	return fmt.Sprintf("%s: %s.%s (extension %q): %v", e.Kind, e.Type, e.Field, e.Extension, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
