package bridge

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hageln/forgext/internal/eventbus"
	"github.com/hageln/forgext/internal/events"
)

func newTestInstance(guest Guest) *Instance {
	return NewInstance("issues", guest, nil)
}

func TestResolveFieldReturnsPayloadVerbatim(t *testing.T) {
	guest := &MockGuest{
		ResolveFieldFn: func(field string, argsJSON []byte) ([]byte, error) {
			require.Equal(t, "getIssue", field)
			require.JSONEq(t, `{"id":"5"}`, string(argsJSON))
			return []byte(`{"id":"5","title":"crash on push"}`), nil
		},
	}
	inst := newTestInstance(guest)

	out, err := inst.ResolveField(context.Background(), "getIssue", []byte(`{"id":"5"}`))
	require.NoError(t, err)
	require.Equal(t, `{"id":"5","title":"crash on push"}`, string(out))
	require.True(t, inst.Healthy())
}

func TestGuestReportedErrorKeepsInstanceHealthy(t *testing.T) {
	inst := newTestInstance(&MockGuest{
		ResolveFieldFn: func(string, []byte) ([]byte, error) {
			return nil, &GuestError{Message: "issue not found"}
		},
	})

	_, err := inst.ResolveField(context.Background(), "getIssue", nil)
	var gerr *GuestError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, "issue not found", gerr.Message)
	require.True(t, inst.Healthy())
}

func TestTrapMarksUnhealthyAndShortCircuits(t *testing.T) {
	calls := 0
	inst := newTestInstance(&MockGuest{
		ResolveFieldFn: func(string, []byte) ([]byte, error) {
			calls++
			return nil, errors.New("connection is shut down")
		},
	})

	_, err := inst.ResolveField(context.Background(), "getIssue", nil)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, Trap, rerr.Kind)
	require.Equal(t, "issues", rerr.Extension)
	require.False(t, inst.Healthy())

	// Subsequent calls never reach the sandbox.
	_, err = inst.ResolveField(context.Background(), "getIssue", nil)
	require.ErrorIs(t, err, ErrUnhealthy)
	require.Equal(t, 1, calls)
}

func TestTrapPublishesUnhealthyOnce(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })
	var seen []string
	eventbus.Subscribe(func(_ context.Context, e events.ExtensionUnhealthy) {
		seen = append(seen, e.Extension)
	})

	inst := newTestInstance(&MockGuest{
		ResolveFieldFn: func(string, []byte) ([]byte, error) {
			return nil, errors.New("connection is shut down")
		},
	})

	_, err := inst.ResolveField(context.Background(), "getIssue", nil)
	require.Error(t, err)
	_, err = inst.ResolveField(context.Background(), "getIssue", nil)
	require.ErrorIs(t, err, ErrUnhealthy)
	require.Equal(t, []string{"issues"}, seen)
}

func TestTimeoutDoesNotMarkUnhealthy(t *testing.T) {
	release := make(chan struct{})
	inst := newTestInstance(&MockGuest{
		ResolveFieldFn: func(string, []byte) ([]byte, error) {
			<-release
			return []byte(`null`), nil
		},
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := inst.ResolveField(ctx, "slow", nil)

	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, Timeout, rerr.Kind)
	require.True(t, inst.Healthy())
}

func TestTimedOutCallKeepsInstanceBusy(t *testing.T) {
	var inFlight atomic.Int32
	var overlapped atomic.Bool
	release := make(chan struct{})
	inst := newTestInstance(&MockGuest{
		ResolveFieldFn: func(string, []byte) ([]byte, error) {
			if inFlight.Add(1) > 1 {
				overlapped.Store(true)
			}
			<-release
			inFlight.Add(-1)
			return []byte(`null`), nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := inst.ResolveField(ctx, "slow", nil)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, Timeout, rerr.Kind)

	// A second call must wait for the abandoned one to drain, never enter
	// the sandbox alongside it.
	second := make(chan error, 1)
	go func() {
		_, err := inst.ResolveField(context.Background(), "slow", nil)
		second <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(1), inFlight.Load())
	close(release)
	require.NoError(t, <-second)
	require.False(t, overlapped.Load())
	require.True(t, inst.Healthy())
}

func TestInitPassesHostServices(t *testing.T) {
	var seen HostServices
	host := NewHostServices("issues", testLogger(), nil)
	guest := &MockGuest{
		InitFn: func(cfg InitConfig, h HostServices) error {
			seen = h
			return nil
		},
	}
	inst := NewInstance("issues", guest, nil)

	require.NoError(t, inst.Init(context.Background(), InitConfig{Name: "issues"}, host))
	require.Same(t, host, seen)
	require.Len(t, guest.InitConfigs, 1)
	require.Equal(t, "issues", guest.InitConfigs[0].Name)
}

func TestCallsSerializedPerInstance(t *testing.T) {
	inFlight := 0
	max := 0
	enter := make(chan struct{}, 2)
	inst := newTestInstance(&MockGuest{
		ResolveFieldFn: func(string, []byte) ([]byte, error) {
			inFlight++
			if inFlight > max {
				max = inFlight
			}
			time.Sleep(5 * time.Millisecond)
			inFlight--
			return []byte(`null`), nil
		},
	})

	for range 2 {
		go func() {
			_, _ = inst.ResolveField(context.Background(), "x", nil)
			enter <- struct{}{}
		}()
	}
	<-enter
	<-enter
	require.Equal(t, 1, max)
}
