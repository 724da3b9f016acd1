// Package router connects the execution engine's field-resolution requests
// to the owning extension's sandbox. It reads only the frozen registry, so
// concurrent resolutions need no synchronization here; serialization per
// sandbox happens at the bridge.
package router

import (
	"context"
	"errors"
	"time"

	"github.com/hageln/forgext/internal/bridge"
	"github.com/hageln/forgext/internal/eventbus"
	"github.com/hageln/forgext/internal/events"
	"github.com/hageln/forgext/internal/registry"
	"github.com/hageln/forgext/internal/schema"
)

type Router struct {
	reg       *registry.Registry
	instances map[string]*bridge.Instance
	timeout   time.Duration
}

// New builds a router over a frozen registry and the live instances by
// extension name. timeout bounds each dispatched call; zero means no bound.
func New(reg *registry.Registry, instances map[string]*bridge.Instance, timeout time.Duration) *Router {
	return &Router{reg: reg, instances: instances, timeout: timeout}
}

// Resolve dispatches one field resolution to the owning extension. argsJSON
// carries the already-validated argument values; the returned JSON is the
// guest's payload verbatim, left to the engine to coerce. Calls are
// independent: no caching or deduplication happens here.
func (r *Router) Resolve(ctx context.Context, typeName, field string, argsJSON []byte) ([]byte, error) {
	owner, ok := r.ownerOf(typeName, field)
	if !ok {
		return nil, &ResolutionError{Kind: UnknownField, Type: typeName, Field: field}
	}
	inst, ok := r.instances[owner]
	if !ok || !inst.Healthy() {
		return nil, &ResolutionError{Kind: ExtensionUnavailable, Type: typeName, Field: field, Extension: owner,
			Err: errors.New("extension is unavailable")}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	eventbus.Publish(ctx, events.ResolveStart{Extension: owner, Type: typeName, Field: field})
	result, err := inst.ResolveField(ctx, field, argsJSON)
	eventbus.Publish(ctx, events.ResolveFinish{Extension: owner, Type: typeName, Field: field, Err: err, Duration: time.Since(start)})

	if err != nil {
		return nil, r.convert(typeName, field, owner, err)
	}
	return result, nil
}

func (r *Router) ownerOf(typeName, field string) (string, bool) {
	if schema.IsRootType(typeName) {
		return r.reg.RootFieldOwner(typeName, field)
	}
	return r.reg.TypeOwner(typeName)
}

// convert maps bridge failures onto the resolution taxonomy. The guest's own
// error string passes through verbatim as the field's GraphQL error; traps
// and timeouts surface as a resolution failure without host internals.
func (r *Router) convert(typeName, field, owner string, err error) error {
	if errors.Is(err, bridge.ErrUnhealthy) {
		return &ResolutionError{Kind: ExtensionUnavailable, Type: typeName, Field: field, Extension: owner, Err: err}
	}
	var gerr *bridge.GuestError
	if errors.As(err, &gerr) {
		return &ResolutionError{Kind: ResolutionFailed, Type: typeName, Field: field, Extension: owner, Err: errors.New(gerr.Message)}
	}
	return &ResolutionError{Kind: ResolutionFailed, Type: typeName, Field: field, Extension: owner, Err: err}
}
