package config

import "sort"

// Preset is a named configuration with a one-line summary.
type Preset struct {
	Description string
	apply       func(*Config)
}

var Presets = map[string]Preset{
	"gas": {
		Description: "dilute gas of small fast bodies",
		apply: func(c *Config) {
			c.Bodies.Count = 80
			c.Bodies.Radius = Range{Min: 4, Max: 8}
			c.Bodies.Mass = Range{Min: 1, Max: 2}
			c.Arena.CellSize = 16
		},
	},
	"dense": {
		Description: "crowded arena with frequent contacts",
		apply: func(c *Config) {
			c.Bodies.Count = 400
			c.Bodies.Radius = Range{Min: 6, Max: 10}
			c.Bodies.Speed = Range{Min: 20, Max: 60}
			c.Arena.CellSize = 20
			c.Bodies.MaxAttempts = 5000
		},
	},
	"heavy": {
		Description: "a few large heavy bodies among light ones",
		apply: func(c *Config) {
			c.Bodies.Count = 5
			c.Bodies.Radius = Range{Min: 75, Max: 75}
			c.Bodies.Mass = Range{Min: 10, Max: 10}
			c.Arena.CellSize = 150
		},
	},
	"cradle": {
		Description: "row of touching bodies struck by one mover",
		apply: func(c *Config) {
			c.Scenario = "cradle"
			c.Bodies.Count = 6
			c.Bodies.Radius = Range{Min: 20, Max: 20}
			c.Bodies.Mass = Range{Min: 1, Max: 1}
			c.Bodies.Speed = Range{Min: 150, Max: 150}
			c.Dt = 0.004
		},
	},
	"headon": {
		Description: "two equal bodies exchanging velocities",
		apply: func(c *Config) {
			c.Scenario = "headon"
			c.Bodies.Count = 2
			c.Bodies.Radius = Range{Min: 30, Max: 30}
			c.Bodies.Mass = Range{Min: 5, Max: 5}
			c.Bodies.Speed = Range{Min: 200, Max: 200}
			c.Arena.CellSize = 60
			c.Duration = 5
		},
	},
}

// GetPreset returns a fresh copy of the defaults with the named preset
// applied, or nil if there is no such preset.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
