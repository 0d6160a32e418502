package experiment

import (
	"context"
	"errors"
	"math"
	"testing"
)

func baseConfig(scenario string) Config {
	return Config{
		Scenario:    scenario,
		Width:       200,
		Height:      150,
		CellSize:    10,
		Count:       60,
		Radius:      Range{2, 5},
		Mass:        Range{1, 3},
		Speed:       Range{10, 40},
		Temperature: 1,
		Dt:          0.01,
		Duration:    1,
		SampleEvery: 10,
		Seed:        42,
	}
}

func TestBuildRandom(t *testing.T) {
	cfg := baseConfig("random")
	eng, err := Build(NewRegistry(), cfg)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	bodies := eng.State()
	if len(bodies) != cfg.Count {
		t.Fatalf("expected %d bodies, got %d", cfg.Count, len(bodies))
	}

	for i, b := range bodies {
		r := b.Radius()
		if b.Pos.X < r || b.Pos.X > cfg.Width-r || b.Pos.Y < r || b.Pos.Y > cfg.Height-r {
			t.Errorf("body %d at %+v with radius %v outside arena", i, b.Pos, r)
		}
		if r < cfg.Radius.Min || r > cfg.Radius.Max {
			t.Errorf("body %d radius %v outside range", i, r)
		}
		for _, v := range []float64{b.Vel.X, b.Vel.Y} {
			if s := math.Abs(v); s < cfg.Speed.Min || s > cfg.Speed.Max {
				t.Errorf("body %d velocity component %v outside speed range", i, v)
			}
		}
		for j := i + 1; j < len(bodies); j++ {
			sum := r + bodies[j].Radius()
			if b.Pos.DistSq(bodies[j].Pos) < sum*sum {
				t.Errorf("bodies %d and %d overlap", i, j)
			}
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	cfg := baseConfig("random")
	a, err := Build(NewRegistry(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(NewRegistry(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	sa, sb := a.State(), b.State()
	for i := range sa {
		if sa[i] != sb[i] {
			t.Fatalf("body %d differs between builds with the same seed", i)
		}
	}

	cfg.Seed++
	c, err := Build(NewRegistry(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if c.State()[0] == sa[0] {
		t.Error("different seed produced the same first body")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"crowded", func(c *Config) { c.Width, c.Height, c.Count, c.Radius = 20, 20, 50, Range{3, 3} }, ErrCrowded},
		{"body larger than arena", func(c *Config) { c.Width, c.Radius = 5, Range{4, 4} }, ErrCrowded},
		{"unknown scenario", func(c *Config) { c.Scenario = "vortex" }, ErrUnknownScenario},
		{"zero radius", func(c *Config) { c.Radius = Range{0, 1} }, ErrInvalidRange},
		{"inverted mass", func(c *Config) { c.Mass = Range{3, 1} }, ErrInvalidRange},
		{"negative speed", func(c *Config) { c.Speed = Range{-1, 1} }, ErrInvalidRange},
		{"negative count", func(c *Config) { c.Count = -1 }, ErrInvalidRange},
		{"lattice too dense", func(c *Config) { c.Scenario, c.Count = "lattice", 2000 }, ErrCrowded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig("random")
			tt.mutate(&cfg)
			_, err := Build(NewRegistry(), cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBuildLattice(t *testing.T) {
	cfg := baseConfig("lattice")
	cfg.Count = 10
	eng, err := Build(NewRegistry(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	bodies := eng.State()
	if len(bodies) != 10 {
		t.Fatalf("expected 10 bodies, got %d", len(bodies))
	}
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			sum := bodies[i].Radius() + bodies[j].Radius()
			if bodies[i].Pos.DistSq(bodies[j].Pos) < sum*sum {
				t.Errorf("lattice bodies %d and %d overlap", i, j)
			}
		}
	}
}

func TestHeadOnExchange(t *testing.T) {
	cfg := baseConfig("headon")
	cfg.Width, cfg.Height = 100, 50
	cfg.Radius, cfg.Mass, cfg.Speed = Range{2, 2}, Range{1, 1}, Range{10, 10}
	cfg.Duration = 3

	x := New(cfg, nil)
	if err := x.Setup(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := x.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := x.Engine().State()
	if len(s) != 2 {
		t.Fatalf("expected 2 bodies, got %d", len(s))
	}
	if math.Abs(s[0].Vel.X+10) > 1e-9 || math.Abs(s[1].Vel.X-10) > 1e-9 {
		t.Errorf("velocities not exchanged: %+v %+v", s[0].Vel, s[1].Vel)
	}
}

func TestCradle(t *testing.T) {
	cfg := baseConfig("cradle")
	cfg.Count = 5
	cfg.Radius, cfg.Mass, cfg.Speed = Range{2, 2}, Range{1, 1}, Range{10, 10}
	cfg.Duration = 2

	x := New(cfg, nil)
	if err := x.Setup(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := x.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := x.Engine().State()
	last := len(s) - 1
	if math.Abs(s[last].Vel.X-10) > 1e-9 {
		t.Errorf("last body vx = %v, want 10", s[last].Vel.X)
	}
	for i := 0; i < last; i++ {
		if math.Abs(s[i].Vel.X) > 1e-9 {
			t.Errorf("body %d still moving: %+v", i, s[i].Vel)
		}
	}
}

func TestExperimentRunNotSetup(t *testing.T) {
	x := New(baseConfig("random"), nil)
	if _, err := x.Run(context.Background()); err == nil {
		t.Error("expected error running an experiment that was not set up")
	}
}

func TestExperimentMetrics(t *testing.T) {
	cfg := baseConfig("random")
	x := New(cfg, nil)
	if err := x.Setup(DefaultMetrics(cfg)); err != nil {
		t.Fatal(err)
	}

	result, err := x.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"kinetic_energy", "energy_drift", "momentum_drift", "contacts_per_tick", "containment"} {
		if _, ok := result.Metrics[name]; !ok {
			t.Errorf("metric %s missing", name)
		}
	}
	if drift := result.Metrics["energy_drift"]; drift > 1e-9 {
		t.Errorf("energy drift %v", drift)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	names := r.ListNames()
	want := []string{"cradle", "headon", "lattice", "random"}
	if len(names) != len(want) {
		t.Fatalf("scenarios = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("scenarios = %v, want %v", names, want)
		}
	}
	for _, s := range r.List() {
		if s.Description == "" {
			t.Errorf("scenario %s has no description", s.Name)
		}
	}
}

func TestExperimentBuilder(t *testing.T) {
	x := New(baseConfig("random"), nil)
	build := x.Builder()

	a, err := build(1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := build(2)
	if err != nil {
		t.Fatal(err)
	}
	if a.Snapshot().Bodies[0] == b.Snapshot().Bodies[0] {
		t.Error("builder ignored the seed")
	}
}

func TestSetParam(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		check func(c Config) bool
	}{
		{"bodies", 12.6, func(c Config) bool { return c.Count == 13 }},
		{"temperature", 2, func(c Config) bool { return c.Temperature == 2 }},
		{"radius", 3, func(c Config) bool { return c.Radius == Range{3, 3} }},
		{"speed_max", 90, func(c Config) bool { return c.Speed == Range{10, 90} }},
		{"seed", 7, func(c Config) bool { return c.Seed == 7 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig("random")
			if err := cfg.SetParam(tt.name, tt.value); err != nil {
				t.Fatal(err)
			}
			if !tt.check(cfg) {
				t.Errorf("SetParam(%s, %v) gave %+v", tt.name, tt.value, cfg)
			}
		})
	}

	cfg := baseConfig("random")
	if err := cfg.SetParam("gravity", 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("unknown parameter: got %v", err)
	}
}
