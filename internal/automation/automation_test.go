package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/landcbrown/ParticleSim/internal/experiment"
)

const script = `
name: warmup
description: heat a dilute gas
steps:
  - name: cold
    preset: gas
    params:
      bodies: 10
      duration: 0.1
  - preset: headon
    params:
      duration: 0.32
`

func TestParseScript(t *testing.T) {
	s, err := ParseScript([]byte(script))
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "warmup" || len(s.Steps) != 2 {
		t.Fatalf("got %+v", s)
	}

	cfg, err := s.Steps[0].Resolve(0)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Count != 10 || cfg.Duration != 0.1 || cfg.CellSize != 16 {
		t.Errorf("step 0 resolved to %+v", cfg)
	}
	cfg, err = s.Steps[1].Resolve(1)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scenario != "headon" || cfg.Count != 2 {
		t.Errorf("step 1 resolved to %+v", cfg)
	}
}

func TestParseScriptErrors(t *testing.T) {
	if _, err := ParseScript([]byte("name: empty\n")); !errors.Is(err, ErrEmptyScript) {
		t.Errorf("empty script: got %v", err)
	}
	if _, err := ParseScript([]byte("steps: [")); err == nil {
		t.Error("malformed yaml accepted")
	}

	if _, err := (Step{Preset: "plasma"}).Resolve(0); err == nil {
		t.Error("unknown preset accepted")
	}
	if _, err := (Step{Params: map[string]float64{"gravity": 1}}).Resolve(0); !errors.Is(err, experiment.ErrUnknownParam) {
		t.Errorf("unknown param: got %v", err)
	}
}

func TestRunScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warmup.yaml")
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadScript(path)
	if err != nil {
		t.Fatal(err)
	}

	results, err := RunScript(context.Background(), s, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Name != "cold" || results[1].Name != "step-2" {
		t.Errorf("names = %q, %q", results[0].Name, results[1].Name)
	}
	for _, r := range results {
		want := int(r.Config.Duration/r.Config.Dt + 0.5)
		if r.Result.StepsTaken != want {
			t.Errorf("%s: %d steps, want %d", r.Name, r.Result.StepsTaken, want)
		}
		if _, ok := r.Result.Metrics["kinetic_energy"]; !ok {
			t.Errorf("%s: missing kinetic_energy metric", r.Name)
		}
	}
}

func TestRunScriptStopsAtFailure(t *testing.T) {
	s := &Script{Steps: []Step{
		{Params: map[string]float64{"bodies": 3, "duration": 0.05}},
		{Params: map[string]float64{"bodies": 500, "width": 40, "height": 40}},
	}}
	results, err := RunScript(context.Background(), s, nil)
	if !errors.Is(err, experiment.ErrCrowded) {
		t.Fatalf("got %v, want crowded", err)
	}
	if len(results) != 1 {
		t.Errorf("kept %d results, want 1", len(results))
	}
}

func TestSweepValues(t *testing.T) {
	tests := []struct {
		min, max float64
		steps    int
		want     []float64
	}{
		{0, 1, 3, []float64{0, 0.5, 1}},
		{2, 2, 1, []float64{2}},
		{1, 4, 4, []float64{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		s := Sweep{Min: tt.min, Max: tt.max, Steps: tt.steps}
		got := s.Values()
		if len(got) != len(tt.want) {
			t.Errorf("Values(%v..%v, %d) = %v", tt.min, tt.max, tt.steps, got)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Values(%v..%v, %d) = %v, want %v", tt.min, tt.max, tt.steps, got, tt.want)
				break
			}
		}
	}
}

func sweepBase() experiment.Config {
	return experiment.Config{
		Scenario:    "random",
		Width:       100,
		Height:      100,
		CellSize:    10,
		Count:       5,
		Radius:      experiment.Range{Min: 2, Max: 3},
		Mass:        experiment.Range{Min: 1, Max: 1},
		Speed:       experiment.Range{Min: 10, Max: 10},
		Temperature: 1,
		Dt:          0.01,
		Duration:    0.1,
		SampleEvery: 5,
		Seed:        9,
	}
}

func TestRunSweep(t *testing.T) {
	results, err := RunSweep(context.Background(), &Sweep{
		Base:  sweepBase(),
		Param: "speed",
		Min:   0,
		Max:   20,
		Steps: 3,
		Limit: 2,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	for i, want := range []float64{0, 10, 20} {
		if results[i].Value != want {
			t.Errorf("result %d value = %v, want %v", i, results[i].Value, want)
		}
	}
	if results[0].Metrics["kinetic_energy"] != 0 {
		t.Errorf("resting bodies have energy %v", results[0].Metrics["kinetic_energy"])
	}
	if !(results[2].Metrics["kinetic_energy"] > results[1].Metrics["kinetic_energy"]) {
		t.Error("kinetic energy did not grow with speed")
	}
}

func TestRunSweepErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := RunSweep(ctx, &Sweep{Base: sweepBase(), Param: "speed", Min: 1, Max: 0, Steps: 2}, nil); !errors.Is(err, ErrInvalidSweep) {
		t.Errorf("inverted range: got %v", err)
	}
	if _, err := RunSweep(ctx, &Sweep{Base: sweepBase(), Param: "speed", Steps: 0}, nil); !errors.Is(err, ErrInvalidSweep) {
		t.Errorf("zero steps: got %v", err)
	}
	if _, err := RunSweep(ctx, &Sweep{Base: sweepBase(), Param: "gravity", Steps: 1}, nil); !errors.Is(err, experiment.ErrUnknownParam) {
		t.Errorf("unknown param: got %v", err)
	}
}
