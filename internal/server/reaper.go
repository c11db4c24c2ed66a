package server

import (
	"context"
	"time"

	"github.com/keydb/keydb/internal/keyspace"
	"github.com/keydb/keydb/internal/logging"
	"github.com/keydb/keydb/internal/metrics"
)

// Reaper periodically sweeps a keyspace and physically removes entries
// past their expiry deadline. It is purely a
// memory-reclamation mechanism: correctness never depends on it running,
// since every read and write path already filters logically expired
// entries on its own.
type Reaper struct {
	store            *keyspace.Store
	interval         time.Duration
	metrics          *metrics.Metrics
	connectedClients func() int
	log              logging.Logger
}

// NewReaper creates a Reaper that sweeps store every interval. Each
// sweep also samples the keyspace size and, if connectedClients is
// non-nil, the connection count into the metrics gauges (SPEC_FULL.md
// §4.1), so the gauges change on the reaper's cadence, not per scrape.
func NewReaper(store *keyspace.Store, interval time.Duration, m *metrics.Metrics, connectedClients func() int) *Reaper {
	return &Reaper{
		store:            store,
		interval:         interval,
		metrics:          m,
		connectedClients: connectedClients,
		log:              logging.Default().With("component", "reaper"),
	}
}

// Run sweeps on a fixed tick until ctx is cancelled, exiting within one
// tick of cancellation.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Debug("reaper stopping")
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Reaper) sweep() {
	start := time.Now()
	evicted := r.store.ReapExpired()
	elapsed := time.Since(start)

	if r.metrics != nil {
		r.metrics.ReaperSweepSeconds.Observe(elapsed.Seconds())
		if evicted > 0 {
			r.metrics.ReaperEvictedTotal.Add(float64(evicted))
		}
		r.metrics.Keys.Set(float64(r.store.KeyCount()))
		if r.connectedClients != nil {
			r.metrics.ConnectedClients.Set(float64(r.connectedClients()))
		}
	}
	if evicted > 0 {
		r.log.Debug("reaper sweep evicted keys", "count", evicted, "duration", elapsed)
	}
}
