// Package discovery enumerates extension bundles. The core consumes the
// ordered bundle list; how bundles arrive on disk (packaging, OCI pulls) is
// someone else's problem.
package discovery

import "context"

// Bundle is one discovered extension: a sandboxed executable plus an
// optional opaque configuration blob.
type Bundle struct {
	Name   string
	Path   string
	Config string
}

type Discovery interface {
	// ListBundles returns all discovered bundles. Callers sort by name
	// before loading so diagnostics are reproducible run-to-run.
	ListBundles(ctx context.Context) ([]*Bundle, error)
}
