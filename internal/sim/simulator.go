package sim

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/landcbrown/ParticleSim/internal/dynamo"
	"github.com/landcbrown/ParticleSim/internal/engine"
	"go.uber.org/zap"
)

// Driver advances an engine at a fixed dt, either as fast as possible for a
// bounded duration or paced by a ticker until its context ends.
type Driver struct {
	eng       Engine
	metrics   []Metric
	observers []Observer
	paused    atomic.Bool
	log       *zap.Logger
}

type DriverOption func(*Driver)

func WithLogger(l *zap.Logger) DriverOption {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}

func New(eng Engine, opts ...DriverOption) *Driver {
	d := &Driver{
		eng:       eng,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) AddMetric(m Metric)     { d.metrics = append(d.metrics, m) }
func (d *Driver) AddObserver(o Observer) { d.observers = append(d.observers, o) }

// SetPaused stops or resumes stepping in RunRealtime. While paused, queued
// temperature changes are still applied on every tick.
func (d *Driver) SetPaused(p bool) { d.paused.Store(p) }
func (d *Driver) Paused() bool     { return d.paused.Load() }

// Run steps the engine round(duration/dt) times, recording a sample at tick
// 0, every SampleEvery ticks and after the last tick.
func (d *Driver) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := max(1, int(math.Round(cfg.Duration/cfg.Dt)))
	every := max(1, cfg.SampleEvery)

	result := &Result{
		Samples: make([]Sample, 0, steps/every+2),
		Metrics: make(map[string]float64),
		Seed:    cfg.Seed,
	}

	for _, m := range d.metrics {
		m.Reset()
	}

	snap := d.eng.Snapshot()
	first := sampleOf(snap)
	result.Samples = append(result.Samples, first)

	d.log.Debug("run started",
		zap.Int("steps", steps),
		zap.Float64("dt", cfg.Dt),
		zap.Int("bodies", len(snap.Bodies)),
	)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := d.eng.Step(cfg.Dt); err != nil {
			return result, fmt.Errorf("step %d: %w", i, err)
		}
		result.StepsTaken++

		last := i == steps-1
		record := (i+1)%every == 0 || last
		if !record && len(d.metrics) == 0 && len(d.observers) == 0 {
			continue
		}

		snap = d.eng.Snapshot()
		d.notify(snap)
		if record {
			result.Samples = append(result.Samples, sampleOf(snap))
		}
	}

	final, _ := result.Final()
	if first.KineticEnergy != 0 {
		result.EnergyDrift = math.Abs(final.KineticEnergy-first.KineticEnergy) / first.KineticEnergy
	}
	result.Stats = snap.Stats

	for _, m := range d.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	d.log.Debug("run finished",
		zap.Int("steps", result.StepsTaken),
		zap.Uint64("contacts", result.Stats.TotalContacts),
		zap.Float64("energy_drift", result.EnergyDrift),
	)
	return result, nil
}

// RunRealtime steps the engine by dt once per interval until ctx is done.
// It returns ctx.Err() on cancellation or the first step error.
func (d *Driver) RunRealtime(ctx context.Context, dt float64, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%v: %w", interval, ErrInvalidInterval)
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("dt %g: %w", dt, dynamo.ErrInvalidStep)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.paused.Load() {
				if p, ok := d.eng.(interface{ ApplyPending() }); ok {
					p.ApplyPending()
				}
				continue
			}
			if err := d.eng.Step(dt); err != nil {
				d.log.Error("realtime step failed", zap.Error(err))
				return err
			}
			if len(d.metrics) > 0 || len(d.observers) > 0 {
				d.notify(d.eng.Snapshot())
			}
		}
	}
}

func (d *Driver) notify(s engine.Snapshot) {
	for _, m := range d.metrics {
		m.Observe(s)
	}
	for _, o := range d.observers {
		o.OnStep(s)
	}
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("dt %g: %w", cfg.Dt, dynamo.ErrInvalidStep)
	}
	if !(cfg.Duration > 0) || math.IsInf(cfg.Duration, 0) {
		return fmt.Errorf("duration %g: %w", cfg.Duration, ErrInvalidDuration)
	}
	return nil
}
