package bin

import (
	"encoding/json"
	"time"
)

// Bin is a simulated smart waste container. Location and Type are opaque
// caller-supplied payloads: the simulator passes them through unchanged and
// never interprets or validates them.
type Bin struct {
	ID               string          `json:"id"`
	Location         json.RawMessage `json:"location,omitempty"`
	Type             string          `json:"type"`
	Capacity         float64         `json:"capacity"`
	CurrentFillLevel float64         `json:"currentFillLevel"`
	Temperature      float64         `json:"temperature"`
	BatteryLevel     float64         `json:"batteryLevel"`
	Status           string          `json:"status"`
	LastUpdated      time.Time       `json:"lastUpdated"`
	Alerts           []Alert         `json:"alerts"`
	SensorData       SensorData      `json:"sensorData"`
}

// SensorData is the derived sensor block, recomputed wholesale on each
// simulation tick from the bin's fill level.
type SensorData struct {
	UltrasonicDistance float64 `json:"ultrasonicDistance"`
	Weight             float64 `json:"weight"`
	TiltAngle          float64 `json:"tiltAngle"`
	Smoke              bool    `json:"smoke"`
	Moisture           float64 `json:"moisture"`
}

// Alert is a single derived threshold alert.
type Alert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Update is a partial mutation of a bin. Nil fields are left untouched;
// SensorData, when set, replaces the stored block wholesale (shallow merge).
type Update struct {
	Location     json.RawMessage
	FillLevel    *float64
	Temperature  *float64
	BatteryLevel *float64
	Status       *string
	SensorData   *SensorData
}

// Changed records which fields an Update touched. The fleet uses it to
// classify updates as significant for backend forwarding.
type Changed struct {
	Location     bool
	FillLevel    bool
	Temperature  bool
	BatteryLevel bool
	Status       bool
	SensorData   bool
}

const (
	// StatusActive is the lifecycle label assigned at creation. The registry
	// does not transition it; external updates may set anything.
	StatusActive = "active"

	defaultTemperature = 20.0
	fullBattery        = 100.0
)
