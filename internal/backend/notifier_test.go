package backend

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenloop/binsim/internal/bin"
)

type capturedRequest struct {
	path string
	body []byte
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, chan capturedRequest) {
	t.Helper()
	ch := make(chan capturedRequest, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ch <- capturedRequest{path: r.URL.Path, body: body}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func testLogger() *log.Logger { return log.New(io.Discard) }

func sampleBin() bin.Bin {
	return bin.Bin{
		ID:               "bin-1",
		Type:             "general",
		Capacity:         100,
		CurrentFillLevel: 42,
		Temperature:      21,
		BatteryLevel:     88,
		Status:           bin.StatusActive,
		LastUpdated:      time.Now(),
		Alerts:           []bin.Alert{},
	}
}

func TestRegisterBinPostsRegistration(t *testing.T) {
	srv, ch := newCaptureServer(t, http.StatusCreated)
	c := NewClient(srv.URL, testLogger())

	c.RegisterBin(sampleBin())

	select {
	case req := <-ch:
		assert.Equal(t, "/waste/bins/register", req.path)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(req.body, &payload))
		assert.Equal(t, "bin-1", payload["id"])
		assert.Equal(t, "general", payload["type"])
	case <-time.After(2 * time.Second):
		t.Fatal("registration never reached the backend")
	}
}

func TestForwardUpdatePostsReading(t *testing.T) {
	srv, ch := newCaptureServer(t, http.StatusOK)
	c := NewClient(srv.URL, testLogger())

	b := sampleBin()
	b.Alerts = []bin.Alert{{Type: bin.AlertHighFill, Severity: bin.SeverityWarning, Message: "Bin is 85% full"}}
	c.ForwardUpdate(b)

	select {
	case req := <-ch:
		assert.Equal(t, "/waste/bins/bin-1/data", req.path)
		var payload struct {
			FillLevel    float64     `json:"fillLevel"`
			Temperature  float64     `json:"temperature"`
			BatteryLevel float64     `json:"batteryLevel"`
			Alerts       []bin.Alert `json:"alerts"`
		}
		require.NoError(t, json.Unmarshal(req.body, &payload))
		assert.Equal(t, 42.0, payload.FillLevel)
		assert.Equal(t, 88.0, payload.BatteryLevel)
		require.Len(t, payload.Alerts, 1)
		assert.Equal(t, bin.AlertHighFill, payload.Alerts[0].Type)
	case <-time.After(2 * time.Second):
		t.Fatal("update never reached the backend")
	}
}

func TestFailuresAreSwallowed(t *testing.T) {
	// Server errors and dead endpoints must never surface to the caller.
	srv, ch := newCaptureServer(t, http.StatusInternalServerError)
	c := NewClient(srv.URL, testLogger())
	c.ForwardUpdate(sampleBin())
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("request never sent")
	}

	dead := NewClient("http://127.0.0.1:1", testLogger())
	dead.RegisterBin(sampleBin())
	dead.ForwardUpdate(sampleBin())
	// Nothing to assert beyond the absence of a panic; give the goroutines
	// a moment to run their failure paths.
	time.Sleep(50 * time.Millisecond)
}

func TestNopNotifier(t *testing.T) {
	var n Nop
	n.RegisterBin(sampleBin())
	n.ForwardUpdate(sampleBin())
}
