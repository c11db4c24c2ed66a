// Package shutdown coordinates graceful process termination for
// keydb-server: it waits for SIGINT/SIGTERM, then tears down the RESP
// server, reaper, metrics endpoint, and config watcher in the reverse of
// the order their hooks were registered, each step bounded by a shared
// timeout and logged as it runs.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/keydb/keydb/internal/logging"
)

// namedHook pairs a shutdown action with the subsystem name it tears
// down, so the handler can log which step is running and which one
// failed without every caller repeating that logging itself.
type namedHook struct {
	name string
	fn   func(context.Context) error
}

// Handler runs shutdown hooks in reverse registration order once a
// termination signal arrives.
type Handler struct {
	timeout time.Duration
	log     logging.Logger

	mu    sync.Mutex
	hooks []namedHook
}

// NewHandler creates a Handler that gives all registered hooks, combined,
// up to timeout to finish once shutdown begins. log receives one line per
// hook as it runs; a nil log disables that logging.
func NewHandler(timeout time.Duration, log logging.Logger) *Handler {
	return &Handler{timeout: timeout, log: log}
}

// OnShutdown registers hook under name to run when shutdown begins. Hooks
// run in the reverse of the order they were registered, so the
// last-registered subsystem (e.g. the config watcher, registered after
// the RESP server) is the first to be torn down.
func (h *Handler) OnShutdown(name string, hook func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, namedHook{name: name, fn: hook})
}

// Wait blocks until SIGINT or SIGTERM arrives, then runs every
// registered hook in reverse order and returns the last error
// encountered, if any.
func (h *Handler) Wait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	if h.log != nil {
		h.log.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := make([]namedHook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	var lastErr error
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if h.log != nil {
			h.log.Info("shutting down", "component", hook.name)
		}
		if err := hook.fn(ctx); err != nil {
			if h.log != nil {
				h.log.Error("shutdown hook failed", "component", hook.name, "error", err)
			}
			lastErr = err
		}
	}

	return lastErr
}
