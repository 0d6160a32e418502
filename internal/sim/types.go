package sim

import (
	"errors"

	"github.com/landcbrown/ParticleSim/internal/dynamo"
	"github.com/landcbrown/ParticleSim/internal/engine"
)

var (
	ErrInvalidDuration = errors.New("sim: duration must be positive")
	ErrInvalidInterval = errors.New("sim: interval must be positive")
)

// Engine is the part of *engine.Engine the driver needs.
type Engine interface {
	Step(dt float64) error
	Snapshot() engine.Snapshot
}

// Builder constructs a freshly seeded engine for one ensemble member.
type Builder func(seed int64) (Engine, error)

type Metric interface {
	Name() string
	Observe(s engine.Snapshot)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s engine.Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s engine.Snapshot)

func (f ObserverFunc) OnStep(s engine.Snapshot) { f(s) }

type Config struct {
	Dt          float64
	Duration    float64
	SampleEvery int
	Seed        int64
}

// Sample is one recorded frame of a headless run.
type Sample struct {
	Tick          uint64
	Time          float64
	KineticEnergy float64
	Momentum      dynamo.Vec
	Contacts      int
	Bodies        []dynamo.Body
}

type Result struct {
	Samples     []Sample
	Metrics     map[string]float64
	StepsTaken  int
	EnergyDrift float64
	Stats       engine.Stats
	Seed        int64
}

// Final returns the last recorded sample.
func (r *Result) Final() (Sample, bool) {
	if len(r.Samples) == 0 {
		return Sample{}, false
	}
	return r.Samples[len(r.Samples)-1], true
}

func sampleOf(s engine.Snapshot) Sample {
	return Sample{
		Tick:          s.Tick,
		Time:          s.Time,
		KineticEnergy: engine.KineticEnergy(s.Bodies),
		Momentum:      engine.Momentum(s.Bodies),
		Contacts:      s.Stats.Contacts,
		Bodies:        s.Bodies,
	}
}
