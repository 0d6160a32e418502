package experiment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/landcbrown/ParticleSim/internal/engine"
	"github.com/landcbrown/ParticleSim/internal/sim"
)

// DefaultMaxAttempts bounds the placement retries for one body.
const DefaultMaxAttempts = 1000

var (
	ErrCrowded         = errors.New("experiment: arena too crowded to place bodies")
	ErrUnknownScenario = errors.New("experiment: unknown scenario")
	ErrInvalidRange    = errors.New("experiment: invalid range")
)

// Range is an inclusive interval sampled uniformly.
type Range struct {
	Min float64
	Max float64
}

func (r Range) sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

func (r Range) Mid() float64 { return (r.Min + r.Max) / 2 }

type Config struct {
	Scenario    string
	Width       float64
	Height      float64
	CellSize    float64
	Count       int
	Radius      Range
	Mass        Range
	Speed       Range
	Temperature float64
	Dt          float64
	Duration    float64
	SampleEvery int
	Seed        int64
	MaxAttempts int
}

func (c Config) validate() error {
	if c.Count < 0 {
		return fmt.Errorf("count %d: %w", c.Count, ErrInvalidRange)
	}
	if !(c.Radius.Min > 0) || c.Radius.Max < c.Radius.Min {
		return fmt.Errorf("radius [%g, %g]: %w", c.Radius.Min, c.Radius.Max, ErrInvalidRange)
	}
	if !(c.Mass.Min > 0) || c.Mass.Max < c.Mass.Min {
		return fmt.Errorf("mass [%g, %g]: %w", c.Mass.Min, c.Mass.Max, ErrInvalidRange)
	}
	if c.Speed.Min < 0 || c.Speed.Max < c.Speed.Min {
		return fmt.Errorf("speed [%g, %g]: %w", c.Speed.Min, c.Speed.Max, ErrInvalidRange)
	}
	return nil
}

type Experiment struct {
	cfg      Config
	registry *Registry
	engine   *engine.Engine
	driver   *sim.Driver
	log      *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Experiment {
	if log == nil {
		log = zap.NewNop()
	}
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		log:      log,
	}
}

// Build creates an engine for cfg and seeds it with the configured scenario.
// The same seed always yields the same bodies.
func Build(reg *Registry, cfg Config, opts ...engine.Option) (*engine.Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	scenario, err := reg.Get(cfg.Scenario)
	if err != nil {
		return nil, err
	}

	if cfg.Temperature > 0 {
		opts = append([]engine.Option{engine.WithReferenceTemperature(cfg.Temperature)}, opts...)
	}
	eng, err := engine.New(cfg.Width, cfg.Height, cfg.CellSize, opts...)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if err := scenario.Seed(eng, cfg, rng); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", cfg.Scenario, err)
	}
	return eng, nil
}

// Setup builds the engine and a driver with the given metrics attached.
func (e *Experiment) Setup(metrics []sim.Metric, opts ...engine.Option) error {
	eng, err := Build(e.registry, e.cfg, append([]engine.Option{engine.WithLogger(e.log)}, opts...)...)
	if err != nil {
		return err
	}
	e.engine = eng
	e.driver = sim.New(eng, sim.WithLogger(e.log))
	for _, m := range metrics {
		e.driver.AddMetric(m)
	}

	e.log.Info("experiment ready",
		zap.String("scenario", e.cfg.Scenario),
		zap.Int("bodies", eng.Len()),
		zap.Int64("seed", e.cfg.Seed),
	)
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.driver == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	return e.driver.Run(ctx, sim.Config{
		Dt:          e.cfg.Dt,
		Duration:    e.cfg.Duration,
		SampleEvery: e.cfg.SampleEvery,
		Seed:        e.cfg.Seed,
	})
}

// Builder returns a sim.Builder that seeds a fresh engine per ensemble member.
func (e *Experiment) Builder(opts ...engine.Option) sim.Builder {
	return func(seed int64) (sim.Engine, error) {
		cfg := e.cfg
		cfg.Seed = seed
		eng, err := Build(e.registry, cfg, opts...)
		if err != nil {
			return nil, err
		}
		return eng, nil
	}
}

func (e *Experiment) Engine() *engine.Engine { return e.engine }
func (e *Experiment) Driver() *sim.Driver    { return e.driver }
func (e *Experiment) Config() Config         { return e.cfg }
