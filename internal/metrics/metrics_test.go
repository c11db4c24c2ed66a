package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsExposedOverHTTP(t *testing.T) {
	m := New()
	m.ConnectedClients.Set(3)
	m.Keys.Set(42)
	m.CommandsTotal.WithLabelValues("GET").Inc()
	m.ReaperEvictedTotal.Add(2)

	handler := promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"keydb_connected_clients 3",
		"keydb_keys 42",
		`keydb_commands_total{command="GET"} 1`,
		"keydb_reaper_evicted_total 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q\nfull body:\n%s", want, body)
		}
	}
}
