package loader

import "fmt"

// LoadKind identifies where in the pipeline a bundle was rejected.
type LoadKind string

const (
	IncompatibleAPIVersion LoadKind = "IncompatibleApiVersion"
	MissingCapability      LoadKind = "MissingCapability"
	InstantiationFailed    LoadKind = "InstantiationFailed"
	InitializationFailed   LoadKind = "InitializationFailed"
	MigrationFailed        LoadKind = "MigrationFailed"
)

// LoadError names the offending extension and the rejection cause. It is
// always logged at startup; whether it aborts the server or just skips the
// extension is the caller's policy.
type LoadError struct {
	Kind      LoadKind
	Extension string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: extension %q: %v", e.Kind, e.Extension, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
