package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keydb/keydb/internal/logging"
)

// Server exposes a Metrics set over HTTP at /metrics.
type Server struct {
	httpServer *http.Server
	log        logging.Logger
}

// NewServer creates a metrics HTTP server bound to addr. It does not
// start listening until Start is called.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		log: logging.Default().With("component", "metrics.server"),
	}
}

// Start begins serving in a background goroutine. Bind/listen failures
// are logged, not returned, matching this server's role as a purely
// additive observability surface (SPEC_FULL.md §4.1).
func (s *Server) Start() {
	go func() {
		s.log.Info("starting metrics server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("metrics server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
