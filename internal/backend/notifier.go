package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/greenloop/binsim/internal/bin"
	"github.com/greenloop/binsim/internal/observability"
)

// Notifier is the outbound port to the platform backend. Calls are advisory:
// local registry state never depends on their outcome.
type Notifier interface {
	RegisterBin(b bin.Bin)
	ForwardUpdate(b bin.Bin)
}

// Nop discards all notifications. Default wiring for tests and for running
// the simulator without a backend configured.
type Nop struct{}

func (Nop) RegisterBin(bin.Bin)   {}
func (Nop) ForwardUpdate(bin.Bin) {}

// Client POSTs bin events to the platform backend. Every call is
// fire-and-forget: failures are logged and swallowed, never retried, never
// queued, and never propagated to the mutation that triggered them.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *log.Logger
	Metrics *observability.Collector
}

func NewClient(baseURL string, logger *log.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Logger:  logger,
	}
}

// registration carries the full bin record to the backend at creation.
type registration struct {
	ID           string          `json:"id"`
	Location     json.RawMessage `json:"location,omitempty"`
	Type         string          `json:"type"`
	Capacity     float64         `json:"capacity"`
	Status       string          `json:"status"`
	RegisteredAt time.Time       `json:"registeredAt"`
}

// reading carries a significant state change to the backend.
type reading struct {
	FillLevel    float64        `json:"fillLevel"`
	Temperature  float64        `json:"temperature"`
	BatteryLevel float64        `json:"batteryLevel"`
	SensorData   bin.SensorData `json:"sensorData"`
	Alerts       []bin.Alert    `json:"alerts"`
	Timestamp    time.Time      `json:"timestamp"`
}

// RegisterBin announces a newly created bin to the backend.
func (c *Client) RegisterBin(b bin.Bin) {
	payload := registration{
		ID:           b.ID,
		Location:     b.Location,
		Type:         b.Type,
		Capacity:     b.Capacity,
		Status:       b.Status,
		RegisteredAt: b.LastUpdated,
	}
	go c.post(c.BaseURL+"/waste/bins/register", b.ID, payload)
}

// ForwardUpdate ships a significant state change to the backend.
func (c *Client) ForwardUpdate(b bin.Bin) {
	payload := reading{
		FillLevel:    b.CurrentFillLevel,
		Temperature:  b.Temperature,
		BatteryLevel: b.BatteryLevel,
		SensorData:   b.SensorData,
		Alerts:       b.Alerts,
		Timestamp:    b.LastUpdated,
	}
	go c.post(c.BaseURL+"/waste/bins/"+b.ID+"/data", b.ID, payload)
}

func (c *Client) post(url, binID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.Logger.Error("backend: marshal payload", "bin", binID, "err", err)
		return
	}
	resp, err := c.HTTP.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		c.Logger.Warn("backend: request failed", "bin", binID, "url", url, "err", err)
		c.Metrics.ObserveBackendError()
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.Logger.Warn("backend: unexpected status",
			"bin", binID, "url", url, "status", resp.StatusCode,
			"body", fmt.Sprintf("%.128s", string(detail)))
		c.Metrics.ObserveBackendError()
	}
}
