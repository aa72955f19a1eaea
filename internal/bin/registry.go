package bin

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry owns the authoritative in-memory fleet map. It is an explicit
// store passed to the fleet by reference; there is no package-level state.
type Registry struct {
	mu   sync.RWMutex
	bins map[string]*Bin
}

func NewRegistry() *Registry { return &Registry{bins: make(map[string]*Bin)} }

// Create allocates a fresh id, builds the default bin record, stores it, and
// returns a snapshot. It never fails: inputs are accepted as-is.
func (r *Registry) Create(location json.RawMessage, binType string, capacity float64) Bin {
	b := &Bin{
		ID:               uuid.NewString(),
		Location:         location,
		Type:             binType,
		Capacity:         capacity,
		CurrentFillLevel: 0,
		Temperature:      defaultTemperature,
		BatteryLevel:     fullBattery,
		Status:           StatusActive,
		LastUpdated:      time.Now(),
		Alerts:           []Alert{},
	}
	r.mu.Lock()
	r.bins[b.ID] = b
	r.mu.Unlock()
	return *b
}

// Get returns a snapshot of the bin, or false if the id is unknown.
func (r *Registry) Get(id string) (Bin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bins[id]
	if !ok {
		return Bin{}, false
	}
	return *b, true
}

// List returns snapshots of every bin. Order is unspecified; callers sort.
func (r *Registry) List() []Bin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Bin, 0, len(r.bins))
	for _, b := range r.bins {
		out = append(out, *b)
	}
	return out
}

// Len reports the current fleet size.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bins)
}

// Apply merges the set fields of up into the stored bin, stamps LastUpdated,
// and recomputes the alert list in the same critical section so alerts are
// never stale by more than one mutation. It returns the post-merge snapshot,
// which fields were touched, and false when the id is unknown.
func (r *Registry) Apply(id string, up Update) (Bin, Changed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bins[id]
	if !ok {
		return Bin{}, Changed{}, false
	}
	var ch Changed
	if up.Location != nil {
		b.Location = up.Location
		ch.Location = true
	}
	if up.FillLevel != nil {
		b.CurrentFillLevel = *up.FillLevel
		ch.FillLevel = true
	}
	if up.Temperature != nil {
		b.Temperature = *up.Temperature
		ch.Temperature = true
	}
	if up.BatteryLevel != nil {
		b.BatteryLevel = *up.BatteryLevel
		ch.BatteryLevel = true
	}
	if up.Status != nil {
		b.Status = *up.Status
		ch.Status = true
	}
	if up.SensorData != nil {
		b.SensorData = *up.SensorData
		ch.SensorData = true
	}
	b.LastUpdated = time.Now()
	b.Alerts = EvaluateAlerts(*b)
	return *b, ch, true
}

// Delete removes the bin entirely and reports whether anything was removed.
// Callers that may have a running simulation must stop it first.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bins[id]; !ok {
		return false
	}
	delete(r.bins, id)
	return true
}
