package observability

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsAndExposes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.SetFleetCounts(3, 1)
	c.ObserveTick()
	c.ObserveTick()
	c.ObserveBroadcast("bin:update")
	c.ObserveForward()
	c.ObserveBackendError()

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()

	assert.Contains(t, body, "binsim_bins 3")
	assert.Contains(t, body, "binsim_active_simulations 1")
	assert.Contains(t, body, "binsim_ticks_total 2")
	assert.Contains(t, body, `binsim_broadcasts_total{event="bin:update"} 1`)
	assert.Contains(t, body, "binsim_backend_forwards_total 1")
	assert.Contains(t, body, "binsim_backend_errors_total 1")
}

func TestCollectorReregistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	// A second collector against the same registry reuses the existing
	// metrics instead of failing.
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.ObserveTick()
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.SetFleetCounts(1, 1)
	c.ObserveTick()
	c.ObserveBroadcast("bin:update")
	c.ObserveForward()
	c.ObserveBackendError()

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.True(t, strings.Contains(w.Body.String(), "go_") || w.Code == 200)
}
