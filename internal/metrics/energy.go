package metrics

import (
	"math"

	"github.com/landcbrown/ParticleSim/internal/engine"
)

// KineticEnergy reports the mean total kinetic energy over observed ticks.
type KineticEnergy struct {
	name    string
	samples int
	total   float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(s engine.Snapshot) {
	k.total += engine.KineticEnergy(s.Bodies)
	k.samples++
}

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

func (k *KineticEnergy) Reset() {
	k.total = 0
	k.samples = 0
}

// EnergyDrift reports the largest relative deviation of total kinetic energy
// from the first observed value. Temperature changes show up as drift.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s engine.Snapshot) {
	energy := engine.KineticEnergy(s.Bodies)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

// MomentumDrift reports the largest absolute change of total momentum from
// the first observed value. Wall reflections change momentum, so this is
// only zero for runs where no body reaches a wall.
type MomentumDrift struct {
	name     string
	initial  [2]float64
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(s engine.Snapshot) {
	p := engine.Momentum(s.Bodies)
	if m.samples == 0 {
		m.initial = [2]float64{p.X, p.Y}
	}
	m.samples++
	m.maxDrift = math.Max(m.maxDrift, math.Hypot(p.X-m.initial[0], p.Y-m.initial[1]))
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = [2]float64{}
	m.maxDrift = 0
	m.samples = 0
}
