package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/landcbrown/ParticleSim/internal/engine"
	"github.com/landcbrown/ParticleSim/internal/sim"
)

// Prometheus exports engine state as Prometheus metrics. It is a
// sim.Observer; every collector is registered on the registerer passed to
// NewPrometheus, never the global one. Label sets are fixed.
type Prometheus struct {
	ticks        prometheus.Gauge
	bodies       prometheus.Gauge
	energy       prometheus.Gauge
	temperature  prometheus.Gauge
	contacts     prometheus.Counter
	wallHits     prometheus.Counter
	degenerate   prometheus.Counter
	stepDuration prometheus.Histogram

	lastContacts   uint64
	lastWallHits   uint64
	lastDegenerate uint64
}

func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		ticks: f.NewGauge(prometheus.GaugeOpts{
			Name: "particlesim_ticks",
			Help: "Ticks completed by the engine",
		}),
		bodies: f.NewGauge(prometheus.GaugeOpts{
			Name: "particlesim_bodies",
			Help: "Number of bodies in the arena",
		}),
		energy: f.NewGauge(prometheus.GaugeOpts{
			Name: "particlesim_kinetic_energy",
			Help: "Total kinetic energy of all bodies",
		}),
		temperature: f.NewGauge(prometheus.GaugeOpts{
			Name: "particlesim_temperature",
			Help: "Temperature the current velocities correspond to",
		}),
		contacts: f.NewCounter(prometheus.CounterOpts{
			Name: "particlesim_contacts_total",
			Help: "Overlapping pairs resolved",
		}),
		wallHits: f.NewCounter(prometheus.CounterOpts{
			Name: "particlesim_wall_hits_total",
			Help: "Velocity components reflected at a wall",
		}),
		degenerate: f.NewCounter(prometheus.CounterOpts{
			Name: "particlesim_degenerate_contacts_total",
			Help: "Contacts between bodies with coincident centers",
		}),
		stepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "particlesim_step_duration_seconds",
			Help:    "Wall-clock time spent in Engine.Step",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05},
		}),
	}
}

// OnStep updates gauges and advances counters by the change since the
// previous observation, so it may be called on every tick or only some.
func (p *Prometheus) OnStep(s engine.Snapshot) {
	p.ticks.Set(float64(s.Tick))
	p.bodies.Set(float64(len(s.Bodies)))
	p.energy.Set(engine.KineticEnergy(s.Bodies))
	p.temperature.Set(s.Temperature)

	p.contacts.Add(float64(delta(s.Stats.TotalContacts, &p.lastContacts)))
	p.wallHits.Add(float64(delta(s.Stats.TotalWallHits, &p.lastWallHits)))
	p.degenerate.Add(float64(delta(s.Stats.Degenerate, &p.lastDegenerate)))
}

func delta(total uint64, last *uint64) uint64 {
	if total < *last {
		*last = 0
	}
	d := total - *last
	*last = total
	return d
}

// Instrument wraps eng so every Step is timed into the step duration
// histogram.
func (p *Prometheus) Instrument(eng sim.Engine) sim.Engine {
	return &timedEngine{Engine: eng, hist: p.stepDuration}
}

type timedEngine struct {
	sim.Engine
	hist prometheus.Histogram
}

func (t *timedEngine) Step(dt float64) error {
	start := time.Now()
	err := t.Engine.Step(dt)
	t.hist.Observe(time.Since(start).Seconds())
	return err
}

func (t *timedEngine) ApplyPending() {
	if p, ok := t.Engine.(interface{ ApplyPending() }); ok {
		p.ApplyPending()
	}
}
