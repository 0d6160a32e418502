package sim

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Ensemble runs independent seeded copies of a scenario concurrently.
type Ensemble struct {
	build      Builder
	newMetrics func() []Metric
	numRuns    int
	seedStart  int64
	limit      int
}

// NewEnsemble prepares numRuns runs with seeds seedStart, seedStart+1, ...
// newMetrics, if non-nil, is called once per run so metric state is never
// shared between goroutines.
func NewEnsemble(build Builder, newMetrics func() []Metric, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{
		build:      build,
		newMetrics: newMetrics,
		numRuns:    numRuns,
		seedStart:  seedStart,
		limit:      runtime.GOMAXPROCS(0),
	}
}

// SetLimit caps the number of runs in flight. n <= 0 removes the cap.
func (e *Ensemble) SetLimit(n int) { e.limit = n }

// Run executes every member and returns the results in seed order. The first
// failing member cancels the rest.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}

	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			seed := e.seedStart + int64(i)
			eng, err := e.build(seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}

			d := New(eng)
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					d.AddMetric(m)
				}
			}

			runCfg := cfg
			runCfg.Seed = seed
			res, err := d.Run(ctx, runCfg)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
