package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	canvasStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466"))

	statsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Width(44)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)

	keyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))

	StatusError = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Bold(true)

	sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
)

// styles is the theme-dependent part of the view.
type styles struct {
	bodies, header, graph, running, paused, muted lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		bodies:  lipgloss.NewStyle().Foreground(t.Bodies),
		header:  lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		graph:   lipgloss.NewStyle().Foreground(t.Accent),
		running: lipgloss.NewStyle().Foreground(t.Running).Bold(true),
		paused:  lipgloss.NewStyle().Foreground(t.Paused).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(t.Muted),
	}
}

// Sparkline renders the last width values as block characters scaled
// between their min and max.
func Sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat(" ", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if span > 0 {
			idx = int((v - lo) / span * float64(len(sparkChars)-1))
		}
		b.WriteRune(sparkChars[idx])
	}
	return b.String()
}

func hint(key, what string) string {
	return keyStyle.Render(key) + " " + hintStyle.Render(what)
}
