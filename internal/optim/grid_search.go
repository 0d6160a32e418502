package optim

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"

	"github.com/landcbrown/ParticleSim/internal/experiment"
)

var ErrNoFeasiblePoint = errors.New("optim: no grid point could be run")

// GridSearch evaluates every combination of parameter values and keeps the
// one with the lowest metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d value lists", len(params), len(ranges))
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Outcome is the best point found.
type Outcome struct {
	Params    map[string]float64
	Value     float64
	Evaluated int
	// Skipped counts points whose configuration could not be seeded, such
	// as an arena too crowded for the body count.
	Skipped int
}

// Search runs base with each grid point applied and minimises metricName.
// Points that fail to build are skipped; cancellation stops the search.
func (g *GridSearch) Search(ctx context.Context, base experiment.Config, metricName string) (*Outcome, error) {
	out := &Outcome{Value: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, base, make(map[string]float64), metricName, out); err != nil {
		return nil, err
	}
	if out.Params == nil {
		return nil, ErrNoFeasiblePoint
	}
	return out, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	cfg experiment.Config,
	current map[string]float64,
	metricName string,
	out *Outcome,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		exp := experiment.New(cfg, nil)
		if err := exp.Setup(experiment.DefaultMetrics(cfg)); err != nil {
			out.Skipped++
			return nil
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return err
		}
		out.Evaluated++

		val, ok := result.Metrics[metricName]
		if !ok {
			return fmt.Errorf("optim: unknown metric %s", metricName)
		}
		if val < out.Value {
			out.Value = val
			out.Params = maps.Clone(current)
		}
		return nil
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := cfg
		if err := next.SetParam(name, val); err != nil {
			return err
		}
		current[name] = val
		if err := g.searchRecursive(ctx, depth+1, next, current, metricName, out); err != nil {
			return err
		}
	}
	delete(current, name)
	return nil
}
