// Package automation runs batches of simulations: scripted sequences of
// configured runs and one-parameter sweeps.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/landcbrown/ParticleSim/internal/config"
	"github.com/landcbrown/ParticleSim/internal/experiment"
	"github.com/landcbrown/ParticleSim/internal/sim"
)

var ErrEmptyScript = errors.New("automation: script has no steps")

// Script is a named sequence of runs loaded from YAML.
type Script struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is one run of a script. It starts from Preset (or the defaults) and
// applies Params by name on top.
type Step struct {
	Name     string             `yaml:"name"`
	Preset   string             `yaml:"preset"`
	Scenario string             `yaml:"scenario"`
	Params   map[string]float64 `yaml:"params"`
}

// StepResult pairs a finished step with the configuration it ran.
type StepResult struct {
	Name   string
	Config experiment.Config
	Result *sim.Result
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, ErrEmptyScript
	}
	return &s, nil
}

// Resolve turns step i into a seeding configuration.
func (s Step) Resolve(i int) (experiment.Config, error) {
	base := config.DefaultConfig()
	if s.Preset != "" {
		if base = config.GetPreset(s.Preset); base == nil {
			return experiment.Config{}, fmt.Errorf("step %d: unknown preset %s", i+1, s.Preset)
		}
	}
	cfg := base.Experiment()
	if s.Scenario != "" {
		cfg.Scenario = s.Scenario
	}
	for name, v := range s.Params {
		if err := cfg.SetParam(name, v); err != nil {
			return experiment.Config{}, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return cfg, nil
}

// RunScript executes the steps in order. Results of the steps that finished
// are returned along with the first error.
func RunScript(ctx context.Context, script *Script, log *zap.Logger) ([]StepResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]StepResult, 0, len(script.Steps))

	for i, step := range script.Steps {
		cfg, err := step.Resolve(i)
		if err != nil {
			return results, err
		}
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		log.Info("running step",
			zap.String("script", script.Name),
			zap.String("step", name),
			zap.Int("index", i+1),
			zap.Int("of", len(script.Steps)),
		)

		exp := experiment.New(cfg, log.Named(name))
		if err := exp.Setup(experiment.DefaultMetrics(cfg)); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Name: name, Config: cfg, Result: res})
	}
	return results, nil
}
