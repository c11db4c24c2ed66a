// Package metrics exposes the server's Prometheus counters and gauges,
// wired up per SPEC_FULL.md §4.1. It is additive observability, not a
// replacement for the INFO command.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter and gauge the server publishes.
type Metrics struct {
	ConnectedClients   prometheus.Gauge
	Keys               prometheus.Gauge
	CommandsTotal      *prometheus.CounterVec
	ReaperEvictedTotal prometheus.Counter
	ReaperSweepSeconds prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a Metrics set registered against a fresh, private
// Prometheus registry (not the global default, so multiple Server
// instances in the same process — as in tests — never collide).
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keydb_connected_clients",
			Help: "Number of currently connected clients.",
		}),
		Keys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keydb_keys",
			Help: "Number of keys currently in the keyspace, including not-yet-reaped expired keys.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keydb_commands_total",
			Help: "Total number of commands processed, by verb.",
		}, []string{"command"}),
		ReaperEvictedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keydb_reaper_evicted_total",
			Help: "Total number of keys physically removed by the expiry reaper.",
		}),
		ReaperSweepSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "keydb_reaper_sweep_seconds",
			Help:    "Duration of each reaper sweep, in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.ConnectedClients,
		m.Keys,
		m.CommandsTotal,
		m.ReaperEvictedTotal,
		m.ReaperSweepSeconds,
	)
	return m
}

// Registry returns the private registry backing this Metrics set, for
// use by the HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
