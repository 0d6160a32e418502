package automation

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/landcbrown/ParticleSim/internal/experiment"
)

var ErrInvalidSweep = errors.New("automation: invalid sweep")

// Sweep varies one parameter linearly over [Min, Max] in Steps points.
type Sweep struct {
	Base  experiment.Config
	Param string
	Min   float64
	Max   float64
	Steps int
	// Limit caps the points run at once; zero means GOMAXPROCS.
	Limit int
}

// SweepResult holds the metrics of one point.
type SweepResult struct {
	Value         float64
	Metrics       map[string]float64
	EnergyDrift   float64
	TotalContacts uint64
	TotalWallHits uint64
}

// Values returns the parameter values in order.
func (s *Sweep) Values() []float64 {
	if s.Steps == 1 {
		return []float64{s.Min}
	}
	step := (s.Max - s.Min) / float64(s.Steps-1)
	vals := make([]float64, s.Steps)
	for i := range vals {
		vals[i] = s.Min + float64(i)*step
	}
	return vals
}

// RunSweep runs every point concurrently and returns the results in
// parameter order.
func RunSweep(ctx context.Context, sweep *Sweep, log *zap.Logger) ([]SweepResult, error) {
	if sweep.Steps < 1 || sweep.Max < sweep.Min {
		return nil, fmt.Errorf("%w: %d steps over [%g, %g]", ErrInvalidSweep, sweep.Steps, sweep.Min, sweep.Max)
	}
	if log == nil {
		log = zap.NewNop()
	}
	probe := sweep.Base
	if err := probe.SetParam(sweep.Param, sweep.Min); err != nil {
		return nil, err
	}

	values := sweep.Values()
	results := make([]SweepResult, len(values))

	g, ctx := errgroup.WithContext(ctx)
	limit := sweep.Limit
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	for i, v := range values {
		g.Go(func() error {
			cfg := sweep.Base
			if err := cfg.SetParam(sweep.Param, v); err != nil {
				return err
			}
			exp := experiment.New(cfg, nil)
			if err := exp.Setup(experiment.DefaultMetrics(cfg)); err != nil {
				return fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
			}
			res, err := exp.Run(ctx)
			if err != nil {
				return fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
			}
			results[i] = SweepResult{
				Value:         v,
				Metrics:       res.Metrics,
				EnergyDrift:   res.EnergyDrift,
				TotalContacts: res.Stats.TotalContacts,
				TotalWallHits: res.Stats.TotalWallHits,
			}
			log.Debug("sweep point done",
				zap.String("param", sweep.Param),
				zap.Float64("value", v),
				zap.Int("index", i+1),
				zap.Int("of", len(values)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
