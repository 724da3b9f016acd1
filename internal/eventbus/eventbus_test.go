package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ N int }
type pong struct{ N int }

func TestPublishDispatchesByType(t *testing.T) {
	Use(New())
	t.Cleanup(func() { Use(nil) })

	var pings, pongs []int
	Subscribe(func(_ context.Context, e ping) { pings = append(pings, e.N) })
	Subscribe(func(_ context.Context, e pong) { pongs = append(pongs, e.N) })

	Publish(context.Background(), ping{N: 1})
	Publish(context.Background(), pong{N: 2})
	Publish(context.Background(), ping{N: 3})

	require.Equal(t, []int{1, 3}, pings)
	require.Equal(t, []int{2}, pongs)
}

func TestUnsubscribeRemovesOnlyOwnHandler(t *testing.T) {
	Use(New())
	t.Cleanup(func() { Use(nil) })

	var first, second int
	cancelFirst := Subscribe(func(_ context.Context, _ ping) { first++ })
	Subscribe(func(_ context.Context, _ ping) { second++ })

	Publish(context.Background(), ping{})
	cancelFirst()
	Publish(context.Background(), ping{})

	require.Equal(t, 1, first)
	require.Equal(t, 2, second)
}

func TestPublishWithoutBusIsNoop(t *testing.T) {
	Use(nil)
	Subscribe(func(_ context.Context, _ ping) { t.Fatal("handler registered on nil bus") })
	Publish(context.Background(), ping{})
}
