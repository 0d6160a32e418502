package viz

import "github.com/charmbracelet/lipgloss"

// Theme colours the live view. Bodies paints the arena canvas.
type Theme struct {
	Name    string
	Bodies  lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Running lipgloss.Color
	Paused  lipgloss.Color
}

var Themes = []Theme{
	{
		Name:    "cyberpunk",
		Bodies:  lipgloss.Color("#00ffff"),
		Accent:  lipgloss.Color("#ff00ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666688"),
		Running: lipgloss.Color("#00ff88"),
		Paused:  lipgloss.Color("#ffaa00"),
	},
	{
		Name:    "retro",
		Bodies:  lipgloss.Color("#00ff00"),
		Accent:  lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		Running: lipgloss.Color("#88ff88"),
		Paused:  lipgloss.Color("#ffff00"),
	},
	{
		Name:    "ocean",
		Bodies:  lipgloss.Color("#00a8cc"),
		Accent:  lipgloss.Color("#ffd700"),
		Text:    lipgloss.Color("#e0f0ff"),
		Muted:   lipgloss.Color("#4488aa"),
		Running: lipgloss.Color("#00ff88"),
		Paused:  lipgloss.Color("#ffcc00"),
	},
	{
		Name:    "minimal",
		Bodies:  lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Running: lipgloss.Color("#00ff00"),
		Paused:  lipgloss.Color("#ffaa00"),
	},
}

// ThemeIndex returns the position of the named theme, or 0 when unknown.
func ThemeIndex(name string) int {
	for i, t := range Themes {
		if t.Name == name {
			return i
		}
	}
	return 0
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
