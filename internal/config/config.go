package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/landcbrown/ParticleSim/internal/experiment"
)

const (
	DefaultScenario     = "random"
	DefaultWidth        = 800.0
	DefaultHeight       = 600.0
	DefaultCellSize     = 40.0
	DefaultCount        = 50
	DefaultDt           = 0.016
	DefaultDuration     = 10.0
	DefaultSeed         = 1
	DefaultSampleEvery  = 10
	DefaultTemperature  = 1.0
	DefaultTempStep     = 1.25
	DefaultAddr         = ":8080"
	DefaultTickInterval = 16 * time.Millisecond
	DefaultRPS          = 20.0
	DefaultBurst        = 40
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Scenario    string            `yaml:"scenario"`
	Arena       ArenaConfig       `yaml:"arena"`
	Bodies      BodiesConfig      `yaml:"bodies"`
	Dt          float64           `yaml:"dt"`
	Duration    float64           `yaml:"duration"`
	Seed        int64             `yaml:"seed"`
	SampleEvery int               `yaml:"sample_every"`
	Temperature TemperatureConfig `yaml:"temperature"`
	Server      ServerConfig      `yaml:"server"`
}

type ArenaConfig struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	CellSize float64 `yaml:"cell_size"`
}

type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type BodiesConfig struct {
	Count       int   `yaml:"count"`
	Radius      Range `yaml:"radius"`
	Mass        Range `yaml:"mass"`
	Speed       Range `yaml:"speed"`
	MaxAttempts int   `yaml:"max_attempts,omitempty"`
}

type TemperatureConfig struct {
	Reference float64 `yaml:"reference"`
	// Step is the factor applied by one "hotter"/"colder" request.
	Step float64 `yaml:"step"`
}

type ServerConfig struct {
	Addr         string          `yaml:"addr"`
	TickInterval time.Duration   `yaml:"tick_interval"`
	CORSOrigins  []string        `yaml:"cors_origins"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario: DefaultScenario,
		Arena: ArenaConfig{
			Width:    DefaultWidth,
			Height:   DefaultHeight,
			CellSize: DefaultCellSize,
		},
		Bodies: BodiesConfig{
			Count:  DefaultCount,
			Radius: Range{Min: 8, Max: 15},
			Mass:   Range{Min: 5, Max: 15},
			Speed:  Range{Min: 100, Max: 200},
		},
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		Seed:        DefaultSeed,
		SampleEvery: DefaultSampleEvery,
		Temperature: TemperatureConfig{
			Reference: DefaultTemperature,
			Step:      DefaultTempStep,
		},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			TickInterval: DefaultTickInterval,
			CORSOrigins:  []string{"*"},
			RateLimit: RateLimitConfig{
				RPS:   DefaultRPS,
				Burst: DefaultBurst,
			},
		},
	}
}

// Load reads a YAML file, checks it against the embedded schema and decodes
// it over the defaults, so a file only needs the keys it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks cross-field constraints the schema cannot express.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig)
	}

	positive := []struct {
		name string
		v    float64
	}{
		{"arena.width", c.Arena.Width},
		{"arena.height", c.Arena.Height},
		{"arena.cell_size", c.Arena.CellSize},
		{"dt", c.Dt},
		{"duration", c.Duration},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return invalid("%s must be positive, got %g", p.name, p.v)
		}
	}
	if c.Bodies.Count < 0 {
		return invalid("bodies.count must not be negative, got %d", c.Bodies.Count)
	}
	if !(c.Bodies.Radius.Min > 0) || c.Bodies.Radius.Max < c.Bodies.Radius.Min {
		return invalid("bodies.radius [%g, %g]", c.Bodies.Radius.Min, c.Bodies.Radius.Max)
	}
	if !(c.Bodies.Mass.Min > 0) || c.Bodies.Mass.Max < c.Bodies.Mass.Min {
		return invalid("bodies.mass [%g, %g]", c.Bodies.Mass.Min, c.Bodies.Mass.Max)
	}
	if c.Bodies.Speed.Min < 0 || c.Bodies.Speed.Max < c.Bodies.Speed.Min {
		return invalid("bodies.speed [%g, %g]", c.Bodies.Speed.Min, c.Bodies.Speed.Max)
	}
	if c.Arena.CellSize < 2*c.Bodies.Radius.Max {
		return invalid("arena.cell_size %g is smaller than the largest diameter %g", c.Arena.CellSize, 2*c.Bodies.Radius.Max)
	}
	if !(c.Temperature.Reference > 0) {
		return invalid("temperature.reference must be positive, got %g", c.Temperature.Reference)
	}
	if !(c.Temperature.Step > 1) {
		return invalid("temperature.step must be greater than 1, got %g", c.Temperature.Step)
	}
	if c.Server.TickInterval <= 0 {
		return invalid("server.tick_interval must be positive, got %v", c.Server.TickInterval)
	}
	return nil
}

// Experiment converts the file layout into the seeding configuration.
func (c *Config) Experiment() experiment.Config {
	return experiment.Config{
		Scenario:    c.Scenario,
		Width:       c.Arena.Width,
		Height:      c.Arena.Height,
		CellSize:    c.Arena.CellSize,
		Count:       c.Bodies.Count,
		Radius:      experiment.Range{Min: c.Bodies.Radius.Min, Max: c.Bodies.Radius.Max},
		Mass:        experiment.Range{Min: c.Bodies.Mass.Min, Max: c.Bodies.Mass.Max},
		Speed:       experiment.Range{Min: c.Bodies.Speed.Min, Max: c.Bodies.Speed.Max},
		Temperature: c.Temperature.Reference,
		Dt:          c.Dt,
		Duration:    c.Duration,
		SampleEvery: c.SampleEvery,
		Seed:        c.Seed,
		MaxAttempts: c.Bodies.MaxAttempts,
	}
}
