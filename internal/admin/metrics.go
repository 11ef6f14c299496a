package admin

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flightops-sim/internal/simclock"
	"flightops-sim/internal/telemetry"
)

// Metrics exports simulator state to Prometheus. It implements sim.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	ClockState prometheus.Gauge
	ClockSpeed prometheus.Gauge
	SimTime    prometheus.Gauge
	Airborne   prometheus.Gauge
	Triggers   *prometheus.CounterVec
	Saves      *prometheus.CounterVec
}

// NewMetrics registers the simulator metrics on reg. A nil reg gets a
// private registry so several simulators can coexist in one process.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		gatherer: gatherer,
		ClockState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightops_clock_state",
			Help: "Clock state: 0 stopped, 1 running, 2 paused.",
		}),
		ClockSpeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightops_clock_speed",
			Help: "Simulated seconds per wall second.",
		}),
		SimTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightops_sim_time_seconds",
			Help: "Simulated now as a Unix timestamp; 0 when stopped.",
		}),
		Airborne: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightops_flights_airborne",
			Help: "Flights between departure and arrival at simulated now.",
		}),
		Triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightops_reoptimizations_total",
			Help: "Planner invocations, labeled by reason and result.",
		}, []string{"reason", "result"}),
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightops_state_saves_total",
			Help: "Clock persistence attempts, labeled by result.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{m.ClockState, m.ClockSpeed, m.SimTime, m.Airborne, m.Triggers, m.Saves} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func result(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}

func stateValue(s simclock.State) float64 {
	switch s {
	case simclock.Running:
		return 1
	case simclock.Paused:
		return 2
	}
	return 0
}

// ObserveTick updates the clock gauges.
func (m *Metrics) ObserveTick(snap simclock.Snapshot, airborne int) {
	if m == nil {
		return
	}
	m.ClockState.Set(stateValue(snap.State))
	m.ClockSpeed.Set(snap.Speed)
	if snap.Now.IsZero() {
		m.SimTime.Set(0)
	} else {
		m.SimTime.Set(float64(snap.Now.Unix()))
	}
	m.Airborne.Set(float64(airborne))
}

// ObserveTrigger counts a planner call.
func (m *Metrics) ObserveTrigger(row telemetry.TriggerRow) {
	if m == nil {
		return
	}
	m.Triggers.WithLabelValues(row.Reason, result(row.Error != "")).Inc()
}

// ObserveSave counts a persistence attempt.
func (m *Metrics) ObserveSave(err error) {
	if m == nil {
		return
	}
	m.Saves.WithLabelValues(result(err != nil)).Inc()
}
