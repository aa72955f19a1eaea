package fleet

import (
	"encoding/json"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/greenloop/binsim/internal/backend"
	"github.com/greenloop/binsim/internal/bin"
	"github.com/greenloop/binsim/internal/events"
	"github.com/greenloop/binsim/internal/observability"
	"github.com/greenloop/binsim/internal/sim"
)

// Fleet is the composition root: it owns the registry, the simulation
// scheduler, the event bus, and the backend bridge, and funnels every
// mutation through the same apply → broadcast → forward pipeline.
type Fleet struct {
	registry *bin.Registry
	sched    *sim.Scheduler
	bus      *events.Bus
	notifier backend.Notifier
	metrics  *observability.Collector
	logger   *log.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Options tunes fleet construction. Zero values pick sane defaults: a no-op
// backend notifier, a 1s tick interval, and a discard logger.
type Options struct {
	Notifier     backend.Notifier
	Metrics      *observability.Collector
	Logger       *log.Logger
	TickInterval time.Duration
	Seed         uint64
}

func New(opts Options) *Fleet {
	if opts.Notifier == nil {
		opts.Notifier = backend.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	f := &Fleet{
		registry: bin.NewRegistry(),
		bus:      events.NewBus(),
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		rnd:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	f.sched = sim.NewScheduler(f.simulateTick, opts.TickInterval)
	return f
}

// Bus exposes the broadcaster for socket handlers to subscribe to.
func (f *Fleet) Bus() *events.Bus { return f.bus }

// CreateBin registers a new bin and announces it: broadcast to subscribers,
// best-effort registration with the platform backend.
func (f *Fleet) CreateBin(location json.RawMessage, binType string, capacity float64) bin.Bin {
	b := f.registry.Create(location, binType, capacity)
	f.logger.Info("bin created", "id", b.ID, "type", b.Type, "capacity", b.Capacity)
	f.broadcast(b)
	f.notifier.RegisterBin(b)
	f.syncGauges()
	return b
}

// GetBin returns a snapshot of the bin, or false for an unknown id.
func (f *Fleet) GetBin(id string) (bin.Bin, bool) { return f.registry.Get(id) }

// ListBins returns snapshots of the whole fleet.
func (f *Fleet) ListBins() []bin.Bin { return f.registry.List() }

// UpdateBin merges a partial update into the bin and runs the broadcast and
// forwarding cascade. Returns false for an unknown id, mutating nothing.
func (f *Fleet) UpdateBin(id string, up bin.Update) bool {
	snap, changed, ok := f.registry.Apply(id, up)
	if !ok {
		return false
	}
	f.broadcast(snap)
	if significant(changed, snap) {
		f.metrics.ObserveForward()
		f.notifier.ForwardUpdate(snap)
	}
	return true
}

// StartSimulation launches (or restarts) the per-bin simulation. Returns
// false for an unknown id.
func (f *Fleet) StartSimulation(id string, duration time.Duration, fillRate float64) bool {
	if _, ok := f.registry.Get(id); !ok {
		return false
	}
	f.sched.Start(id, duration, fillRate)
	f.logger.Info("simulation started", "id", id, "duration", duration, "fillRate", fillRate)
	f.syncGauges()
	return true
}

// StopSimulation cancels a running simulation; false if none was running.
func (f *Fleet) StopSimulation(id string) bool {
	stopped := f.sched.Stop(id)
	if stopped {
		f.logger.Info("simulation stopped", "id", id)
	}
	f.syncGauges()
	return stopped
}

// DeleteBin stops any running simulation first, then removes the bin, then
// announces the deletion. The ordering prevents a dangling timer from
// referencing a removed entity; a tick racing the delete hits registry
// absence and produces no broadcast.
func (f *Fleet) DeleteBin(id string) bool {
	f.sched.Stop(id)
	if !f.registry.Delete(id) {
		return false
	}
	f.logger.Info("bin deleted", "id", id)
	f.metrics.ObserveBroadcast(events.BinDeleted)
	f.bus.PublishGlobal(events.Event{Name: events.BinDeleted, BinID: id})
	f.syncGauges()
	return true
}

// Shutdown cancels all simulation tasks.
func (f *Fleet) Shutdown() { f.sched.StopAll() }

// simulateTick is the scheduler's step: compute the tick mutation from the
// bin's current state and push it through the normal update pipeline.
func (f *Fleet) simulateTick(id string, fillRate float64) bool {
	current, ok := f.registry.Get(id)
	if !ok {
		return false
	}
	f.rndMu.Lock()
	up := bin.SimulateTick(current, fillRate, f.rnd)
	f.rndMu.Unlock()
	if !f.UpdateBin(id, up) {
		return false
	}
	f.metrics.ObserveTick()
	return true
}

// broadcast publishes the snapshot globally and to the bin's room.
func (f *Fleet) broadcast(b bin.Bin) {
	f.metrics.ObserveBroadcast(events.BinUpdate)
	f.bus.PublishGlobal(events.Event{Name: events.BinUpdate, BinID: b.ID, Bin: &b})
	f.metrics.ObserveBroadcast(events.BinDetailed)
	f.bus.PublishTopic(b.ID, events.Event{Name: events.BinDetailed, BinID: b.ID, Bin: &b})
}

func (f *Fleet) syncGauges() {
	f.metrics.SetFleetCounts(f.registry.Len(), f.sched.Active())
}

// significant reports whether an applied update warrants backend forwarding:
// it touched the fill level or status, or the recomputed alerts are non-empty.
func significant(ch bin.Changed, snap bin.Bin) bool {
	return ch.FillLevel || ch.Status || len(snap.Alerts) > 0
}
