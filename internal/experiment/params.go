package experiment

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrUnknownParam = errors.New("experiment: unknown parameter")

var params = map[string]func(c *Config, v float64){
	"bodies":      func(c *Config, v float64) { c.Count = int(math.Round(v)) },
	"width":       func(c *Config, v float64) { c.Width = v },
	"height":      func(c *Config, v float64) { c.Height = v },
	"cell":        func(c *Config, v float64) { c.CellSize = v },
	"dt":          func(c *Config, v float64) { c.Dt = v },
	"duration":    func(c *Config, v float64) { c.Duration = v },
	"temperature": func(c *Config, v float64) { c.Temperature = v },
	"seed":        func(c *Config, v float64) { c.Seed = int64(v) },
	"radius":      func(c *Config, v float64) { c.Radius = Range{v, v} },
	"radius_min":  func(c *Config, v float64) { c.Radius.Min = v },
	"radius_max":  func(c *Config, v float64) { c.Radius.Max = v },
	"mass":        func(c *Config, v float64) { c.Mass = Range{v, v} },
	"mass_min":    func(c *Config, v float64) { c.Mass.Min = v },
	"mass_max":    func(c *Config, v float64) { c.Mass.Max = v },
	"speed":       func(c *Config, v float64) { c.Speed = Range{v, v} },
	"speed_min":   func(c *Config, v float64) { c.Speed.Min = v },
	"speed_max":   func(c *Config, v float64) { c.Speed.Max = v },
}

// SetParam sets one numeric field by name, as used by sweeps and scripts.
func (c *Config) SetParam(name string, v float64) error {
	set, ok := params[name]
	if !ok {
		return fmt.Errorf("%w: %s (available: %v)", ErrUnknownParam, name, ParamNames())
	}
	set(c, v)
	return nil
}

// ParamNames lists the names SetParam accepts.
func ParamNames() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
