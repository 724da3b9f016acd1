// Package metrics exposes Prometheus collectors for the extension runtime.
package metrics

import (
	"context"
	"strconv"

	eventbus "github.com/hageln/forgext/internal/eventbus"
	events "github.com/hageln/forgext/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the runtime's Prometheus metrics.
type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec

	ExtensionLoadsTotal *prometheus.CounterVec
	ExtensionsLoaded    prometheus.Gauge

	GuestLogLines *prometheus.CounterVec
}

// New creates a collector registered on the default registry.
func New() *Collector {
	return newWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a collector on a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newWith(promauto.With(reg))
}

func newWith(factory promauto.Factory) *Collector {
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "forgext",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "forgext",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "forgext",
				Name:      "resolutions_total",
				Help:      "Total number of field resolutions dispatched to extensions",
			},
			[]string{"extension", "type", "outcome"},
		),
		ResolutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "forgext",
				Name:      "resolution_duration_seconds",
				Help:      "Field resolution duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"extension", "type"},
		),
		ExtensionLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "forgext",
				Name:      "extension_loads_total",
				Help:      "Total number of extension load attempts",
			},
			[]string{"extension", "outcome"},
		),
		ExtensionsLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "forgext",
				Name:      "extensions_loaded",
				Help:      "Number of healthy extensions currently serving fields",
			},
		),
		GuestLogLines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "forgext",
				Name:      "guest_log_lines_total",
				Help:      "Total log lines written by extensions through the host",
			},
			[]string{"extension", "level"},
		),
	}
}

// Observe subscribes the collector to runtime events. The returned function
// detaches the subscriptions.
func (c *Collector) Observe() (unsubscribe func()) {
	var unsubs []func()

	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		c.RequestsTotal.WithLabelValues(e.Request.Method, e.Request.URL.Path, strconv.Itoa(e.Status)).Inc()
		c.RequestDuration.WithLabelValues(e.Request.Method, e.Request.URL.Path).Observe(e.Duration.Seconds())
	}))

	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.ResolveFinish) {
		outcome := "ok"
		if e.Err != nil {
			outcome = "error"
		}
		c.ResolutionsTotal.WithLabelValues(e.Extension, e.Type, outcome).Inc()
		c.ResolutionDuration.WithLabelValues(e.Extension, e.Type).Observe(e.Duration.Seconds())
	}))

	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.ExtensionLoadFinish) {
		outcome := "ok"
		if e.Err != nil {
			outcome = "error"
		} else {
			c.ExtensionsLoaded.Inc()
		}
		c.ExtensionLoadsTotal.WithLabelValues(e.Extension, outcome).Inc()
	}))

	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.ExtensionUnhealthy) {
		c.ExtensionsLoaded.Dec()
	}))

	unsubs = append(unsubs, eventbus.Subscribe(func(ctx context.Context, e events.GuestLog) {
		c.GuestLogLines.WithLabelValues(e.Extension, e.Level).Inc()
	}))

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
