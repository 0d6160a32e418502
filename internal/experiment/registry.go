package experiment

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/landcbrown/ParticleSim/internal/engine"
	"github.com/landcbrown/ParticleSim/internal/metrics"
	"github.com/landcbrown/ParticleSim/internal/sim"
)

// Scenario seeds an empty engine.
type Scenario struct {
	Name        string
	Description string
	Seed        func(eng *engine.Engine, cfg Config, rng *rand.Rand) error
}

type Registry struct {
	scenarios map[string]Scenario
}

func NewRegistry() *Registry {
	r := &Registry{scenarios: make(map[string]Scenario)}

	r.Register(Scenario{
		Name:        "random",
		Description: "uniform random placement without overlap, random velocities",
		Seed:        seedRandom,
	})
	r.Register(Scenario{
		Name:        "lattice",
		Description: "bodies on a regular lattice with random velocities",
		Seed:        seedLattice,
	})
	r.Register(Scenario{
		Name:        "headon",
		Description: "two equal bodies colliding head-on",
		Seed:        seedHeadOn,
	})
	r.Register(Scenario{
		Name:        "cradle",
		Description: "a row of touching bodies struck by one mover",
		Seed:        seedCradle,
	})

	return r
}

func (r *Registry) Register(s Scenario) { r.scenarios[s.Name] = s }

func (r *Registry) Get(name string) (Scenario, error) {
	s, ok := r.scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%q: %w", name, ErrUnknownScenario)
	}
	return s, nil
}

func (r *Registry) List() []Scenario {
	out := make([]Scenario, 0, len(r.scenarios))
	for _, s := range r.scenarios {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) ListNames() []string {
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns a fresh metric set for an arena of cfg's size.
func DefaultMetrics(cfg Config) []sim.Metric {
	return []sim.Metric{
		metrics.NewKineticEnergy(),
		metrics.NewEnergyDrift(),
		metrics.NewMomentumDrift(),
		metrics.NewContactRate(),
		metrics.NewContainment(cfg.Width, cfg.Height),
	}
}
