package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scenario != "random" {
		t.Errorf("expected scenario random, got %s", cfg.Scenario)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if cfg.Server.TickInterval != 16*time.Millisecond {
		t.Errorf("tick interval = %v", cfg.Server.TickInterval)
	}
}

func TestParse_PartialOverridesDefaults(t *testing.T) {
	data := []byte(`
scenario: lattice
arena:
  width: 400
bodies:
  count: 12
server:
  tick_interval: 33ms
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if cfg.Scenario != "lattice" || cfg.Arena.Width != 400 || cfg.Bodies.Count != 12 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Arena.Height != DefaultHeight || cfg.Dt != DefaultDt {
		t.Errorf("defaults lost: height=%v dt=%v", cfg.Arena.Height, cfg.Dt)
	}
	if cfg.Server.TickInterval != 33*time.Millisecond {
		t.Errorf("tick interval = %v, want 33ms", cfg.Server.TickInterval)
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("empty document rejected: %v", err)
	}
	if cfg.Bodies.Count != DefaultCount {
		t.Errorf("count = %d", cfg.Bodies.Count)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "gravity: 9.8\n"},
		{"unknown scenario", "scenario: vortex\n"},
		{"negative dt", "dt: -0.1\n"},
		{"string width", "arena:\n  width: wide\n"},
		{"fractional count", "bodies:\n  count: 2.5\n"},
		{"bad interval", "server:\n  tick_interval: soon\n"},
		{"cell smaller than diameter", "arena:\n  cell_size: 10\n"},
		{"inverted radius", "bodies:\n  radius: {min: 9, max: 3}\n"},
		{"temperature step too small", "temperature:\n  step: 0.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")

	cfg := DefaultConfig()
	cfg.Bodies.Count = 7
	cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Bodies.Count != 7 {
		t.Errorf("count = %d, want 7", loaded.Bodies.Count)
	}
	if loaded.Server.TickInterval != cfg.Server.TickInterval {
		t.Errorf("tick interval = %v", loaded.Server.TickInterval)
	}
	if len(loaded.Server.CORSOrigins) != 1 || loaded.Server.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("cors origins = %v", loaded.Server.CORSOrigins)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("headon")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Scenario != "headon" || cfg.Bodies.Count != 2 {
		t.Errorf("unexpected preset %+v", cfg)
	}

	cfg.Bodies.Count = 99
	if GetPreset("headon").Bodies.Count != 2 {
		t.Error("GetPreset returned shared state")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValid(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("ListPresets returned %d names", len(names))
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			if err := cfg.Validate(); err != nil {
				t.Errorf("preset invalid: %v", err)
			}
			if Presets[name].Description == "" {
				t.Error("missing description")
			}
		})
	}
}

func TestExperimentConversion(t *testing.T) {
	cfg := GetPreset("gas")
	x := cfg.Experiment()

	if x.Width != cfg.Arena.Width || x.CellSize != cfg.Arena.CellSize {
		t.Errorf("arena not carried over: %+v", x)
	}
	if x.Count != cfg.Bodies.Count || x.Radius.Max != cfg.Bodies.Radius.Max {
		t.Errorf("bodies not carried over: %+v", x)
	}
	if x.Temperature != cfg.Temperature.Reference || x.Seed != cfg.Seed {
		t.Errorf("temperature/seed not carried over: %+v", x)
	}
}
