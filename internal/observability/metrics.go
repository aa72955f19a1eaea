package observability

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the simulator's Prometheus metrics. A nil *Collector is
// valid and records nothing, so wiring stays optional in tests.
type Collector struct {
	gatherer prometheus.Gatherer

	Bins            prometheus.Gauge
	Simulations     prometheus.Gauge
	Ticks           prometheus.Counter
	Broadcasts      *prometheus.CounterVec
	BackendForwards prometheus.Counter
	BackendErrors   prometheus.Counter
}

// NewCollector registers the simulator metrics against reg, defaulting to
// the global Prometheus registry when nil. Re-registration of an already
// registered collector is tolerated and reuses the existing one.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	bins, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "binsim_bins",
		Help: "Current number of bins in the registry.",
	}))
	if err != nil {
		return nil, err
	}
	sims, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "binsim_active_simulations",
		Help: "Current number of running per-bin simulation tasks.",
	}))
	if err != nil {
		return nil, err
	}
	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "binsim_ticks_total",
		Help: "Total simulation ticks applied across all bins.",
	}))
	if err != nil {
		return nil, err
	}
	broadcasts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "binsim_broadcasts_total",
		Help: "Total events published to socket subscribers, labeled by event.",
	}, []string{"event"}))
	if err != nil {
		return nil, err
	}
	forwards, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "binsim_backend_forwards_total",
		Help: "Total significant changes forwarded to the platform backend.",
	}))
	if err != nil {
		return nil, err
	}
	berrors, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "binsim_backend_errors_total",
		Help: "Total failed backend forwarding attempts.",
	}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Bins:            bins,
		Simulations:     sims,
		Ticks:           ticks,
		Broadcasts:      broadcasts,
		BackendForwards: forwards,
		BackendErrors:   berrors,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetFleetCounts drives the gauges from the fleet's mutators.
func (c *Collector) SetFleetCounts(bins, simulations int) {
	if c == nil {
		return
	}
	c.Bins.Set(float64(bins))
	c.Simulations.Set(float64(simulations))
}

// ObserveTick counts one applied simulation tick.
func (c *Collector) ObserveTick() {
	if c == nil {
		return
	}
	c.Ticks.Inc()
}

// ObserveBroadcast counts one published socket event.
func (c *Collector) ObserveBroadcast(event string) {
	if c == nil {
		return
	}
	c.Broadcasts.WithLabelValues(event).Inc()
}

// ObserveForward counts one backend forward attempt.
func (c *Collector) ObserveForward() {
	if c == nil {
		return
	}
	c.BackendForwards.Inc()
}

// ObserveBackendError counts one failed backend call.
func (c *Collector) ObserveBackendError() {
	if c == nil {
		return
	}
	c.BackendErrors.Inc()
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return g, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}
