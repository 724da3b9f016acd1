package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hageln/forgext/internal/eventbus"
	"github.com/hageln/forgext/internal/events"
	"github.com/hageln/forgext/internal/schema"
)

// Instance is the host's exclusively owned handle to one running extension.
//
// Calls into the same instance are serialized: one logical call in flight
// per sandbox. Guest calls are synchronous and cannot be cancelled once
// entered; when a context expires the bridge abandons the call and reports a
// timeout while the subprocess finishes (or dies) on its own. A transport
// failure is a trap: it terminates only the in-flight call, marks the
// instance unhealthy and never unwinds past the bridge into the host.
type Instance struct {
	name   string
	guest  Guest
	closer func()

	mu        sync.Mutex
	unhealthy atomic.Bool
}

func NewInstance(name string, guest Guest, closer func()) *Instance {
	return &Instance{name: name, guest: guest, closer: closer}
}

func (i *Instance) Name() string { return i.name }

// Healthy reports whether the instance has not trapped.
func (i *Instance) Healthy() bool { return !i.unhealthy.Load() }

// Close tears the sandbox down. Safe to call on an unhealthy instance.
func (i *Instance) Close() {
	if i.closer != nil {
		i.closer()
	}
}

// call serializes access to the sandbox and converts faults. fn runs on a
// separate goroutine so an expired context can abandon the blocking netRPC
// call; the goroutine itself always runs to completion. A *GuestError from
// fn passes through untouched and leaves the instance healthy.
func (i *Instance) call(ctx context.Context, fn func() error) error {
	if i.unhealthy.Load() {
		return ErrUnhealthy
	}
	i.mu.Lock()
	if i.unhealthy.Load() {
		i.mu.Unlock()
		return ErrUnhealthy
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		i.mu.Unlock()
		return i.convert(err)
	case <-ctx.Done():
		// The guest cannot be cancelled mid-call. The lock is handed to a
		// drain goroutine so the instance stays busy until the abandoned
		// call actually returns; the next caller waits instead of entering
		// the sandbox alongside it.
		go func() {
			err := <-done
			var gerr *GuestError
			if err != nil && !errors.As(err, &gerr) {
				i.markUnhealthy()
			}
			i.mu.Unlock()
		}()
		return &RuntimeError{Kind: Timeout, Extension: i.name, Err: ctx.Err()}
	}
}

// convert maps a guest call result onto the runtime error model.
func (i *Instance) convert(err error) error {
	var gerr *GuestError
	if errors.As(err, &gerr) {
		return err
	}
	if err != nil {
		i.markUnhealthy()
		return &RuntimeError{Kind: Trap, Extension: i.name, Err: err}
	}
	return nil
}

// markUnhealthy announces the healthy-to-unhealthy transition exactly once.
func (i *Instance) markUnhealthy() {
	if i.unhealthy.CompareAndSwap(false, true) {
		eventbus.Publish(context.Background(), events.ExtensionUnhealthy{Extension: i.name})
	}
}

func (i *Instance) GetAPIInfo(ctx context.Context) (APIInfo, error) {
	var info APIInfo
	err := i.call(ctx, func() error {
		var err error
		info, err = i.guest.GetAPIInfo()
		return err
	})
	return info, err
}

// Init runs the guest's init with the host capability surface attached.
// The surface stays bound to the sandbox for the life of the instance.
func (i *Instance) Init(ctx context.Context, cfg InitConfig, host HostServices) error {
	return i.call(ctx, func() error {
		return i.guest.Init(cfg, host)
	})
}

func (i *Instance) GetSchema(ctx context.Context) (*schema.Fragment, error) {
	var frag *schema.Fragment
	err := i.call(ctx, func() error {
		var err error
		frag, err = i.guest.GetSchema()
		return err
	})
	return frag, err
}

func (i *Instance) Migrate(ctx context.Context, dbPath string) error {
	return i.call(ctx, func() error {
		return i.guest.Migrate(dbPath)
	})
}

// ResolveField dispatches one field resolution and returns the guest's JSON
// result verbatim.
func (i *Instance) ResolveField(ctx context.Context, field string, argsJSON []byte) ([]byte, error) {
	var result []byte
	err := i.call(ctx, func() error {
		var err error
		result, err = i.guest.ResolveField(field, argsJSON)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
