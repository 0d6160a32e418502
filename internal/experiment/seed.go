package experiment

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/landcbrown/ParticleSim/internal/dynamo"
	"github.com/landcbrown/ParticleSim/internal/engine"
)

type placed struct {
	x, y, r float64
}

func overlapsAny(x, y, r float64, bodies []placed) bool {
	for _, p := range bodies {
		dx, dy := x-p.x, y-p.y
		sum := r + p.r
		if dx*dx+dy*dy < sum*sum {
			return true
		}
	}
	return false
}

// velocity draws each component with magnitude in the speed range and a
// random sign.
func velocity(speed Range, rng *rand.Rand) dynamo.Vec {
	component := func() float64 {
		v := speed.sample(rng)
		if rng.Intn(2) == 0 {
			v = -v
		}
		return v
	}
	return dynamo.Vec{X: component(), Y: component()}
}

// seedRandom places cfg.Count bodies uniformly inside [r, W-r] x [r, H-r],
// redrawing any candidate that overlaps a body already placed.
func seedRandom(eng *engine.Engine, cfg Config, rng *rand.Rand) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	bodies := make([]placed, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		r := cfg.Radius.sample(rng)
		m := cfg.Mass.sample(rng)
		if 2*r > cfg.Width || 2*r > cfg.Height {
			return fmt.Errorf("body %d radius %g: %w", i, r, ErrCrowded)
		}

		ok := false
		var x, y float64
		for a := 0; a < attempts; a++ {
			x = r + rng.Float64()*(cfg.Width-2*r)
			y = r + rng.Float64()*(cfg.Height-2*r)
			if !overlapsAny(x, y, r, bodies) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("placed %d of %d bodies after %d attempts: %w", i, cfg.Count, attempts, ErrCrowded)
		}

		v := velocity(cfg.Speed, rng)
		if _, err := eng.AddBody(x, y, v.X, v.Y, r, m); err != nil {
			return err
		}
		bodies = append(bodies, placed{x, y, r})
	}
	return nil
}

// seedLattice places bodies at the centres of a near-square lattice.
func seedLattice(eng *engine.Engine, cfg Config, rng *rand.Rand) error {
	if cfg.Count == 0 {
		return nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(cfg.Count) * cfg.Width / cfg.Height)))
	cols = max(1, min(cols, cfg.Count))
	rows := (cfg.Count + cols - 1) / cols

	sx, sy := cfg.Width/float64(cols), cfg.Height/float64(rows)
	if 2*cfg.Radius.Max >= math.Min(sx, sy) {
		return fmt.Errorf("lattice %dx%d spacing %.3g: %w", cols, rows, math.Min(sx, sy), ErrCrowded)
	}

	for i := 0; i < cfg.Count; i++ {
		x := (float64(i%cols) + 0.5) * sx
		y := (float64(i/cols) + 0.5) * sy
		v := velocity(cfg.Speed, rng)
		if _, err := eng.AddBody(x, y, v.X, v.Y, cfg.Radius.sample(rng), cfg.Mass.sample(rng)); err != nil {
			return err
		}
	}
	return nil
}

// seedHeadOn places two equal bodies on the horizontal midline moving
// towards each other at the top of the speed range.
func seedHeadOn(eng *engine.Engine, cfg Config, _ *rand.Rand) error {
	r, m, v := cfg.Radius.Mid(), cfg.Mass.Mid(), cfg.Speed.Max
	if 4*r > cfg.Width/2 || 2*r > cfg.Height {
		return fmt.Errorf("head-on radius %g: %w", r, ErrCrowded)
	}
	y := cfg.Height / 2
	if _, err := eng.AddBody(cfg.Width/4, y, v, 0, r, m); err != nil {
		return err
	}
	_, err := eng.AddBody(3*cfg.Width/4, y, -v, 0, r, m)
	return err
}

// seedCradle lines up Count-1 touching bodies and one mover to their left.
func seedCradle(eng *engine.Engine, cfg Config, _ *rand.Rand) error {
	n := max(2, cfg.Count)
	r, m := cfg.Radius.Mid(), cfg.Mass.Mid()
	gap := 2 * r
	span := float64(n)*2*r + gap
	if span > cfg.Width || 2*r > cfg.Height {
		return fmt.Errorf("cradle of %d spans %g: %w", n, span, ErrCrowded)
	}

	x0 := (cfg.Width-span)/2 + r
	y := cfg.Height / 2
	if _, err := eng.AddBody(x0, y, cfg.Speed.Max, 0, r, m); err != nil {
		return err
	}
	for i := 1; i < n; i++ {
		x := x0 + gap + float64(i)*2*r
		if _, err := eng.AddBody(x, y, 0, 0, r, m); err != nil {
			return err
		}
	}
	return nil
}
