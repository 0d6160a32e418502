package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/landcbrown/ParticleSim/internal/dynamo"
	"github.com/landcbrown/ParticleSim/internal/engine"
)

const (
	defaultCols     = 72
	defaultRows     = 22
	statsWidth      = 48
	historyCapacity = 600
	minCols         = 16
	minRows         = 6
)

type TickMsg time.Time

// Restart builds a fresh engine for the r key.
type Restart func() (*engine.Engine, error)

type Options struct {
	Title string
	Dt    float64
	// TempStep is the factor applied to the temperature by + and -.
	TempStep float64
	Theme    string
	FPS      int
	Restart  Restart
}

// Model drives an engine from bubbletea ticks and draws it on a braille
// canvas next to a stats panel.
type Model struct {
	eng      *engine.Engine
	restart  Restart
	title    string
	dt       float64
	tempStep float64
	frame    time.Duration

	canvas  *Canvas
	cols    int
	rows    int
	scale   float64
	running bool
	help    bool
	theme   int
	styles  styles
	err     error

	last     engine.Snapshot
	energy   []float64
	contacts []float64
}

func NewModel(eng *engine.Engine, opts Options) Model {
	if opts.Dt <= 0 {
		opts.Dt = 0.016
	}
	if opts.TempStep <= 1 {
		opts.TempStep = 1.25
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.Title == "" {
		opts.Title = "particlesim"
	}
	theme := ThemeIndex(opts.Theme)
	m := Model{
		eng:      eng,
		restart:  opts.Restart,
		title:    opts.Title,
		dt:       opts.Dt,
		tempStep: opts.TempStep,
		frame:    time.Second / time.Duration(opts.FPS),
		running:  true,
		theme:    theme,
		styles:   newStyles(Themes[theme]),
		energy:   make([]float64, 0, historyCapacity),
		contacts: make([]float64, 0, historyCapacity),
	}
	m.resize(defaultCols, defaultRows)
	m.observe()
	m.draw()
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.tick() }

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=", "up":
			m.scaleTemperature(m.tempStep)
		case "-", "_", "down":
			m.scaleTemperature(1 / m.tempStep)
		case "r":
			m.reset()
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
			m.styles = newStyles(Themes[m.theme])
		case "?":
			m.help = !m.help
		}
	case tea.WindowSizeMsg:
		m.resize(msg.Width-statsWidth-2, msg.Height-2)
		m.draw()
	case TickMsg:
		m.advance()
		m.draw()
		return m, m.tick()
	}
	return m, nil
}

// advance steps once while running. While paused, queued temperature
// changes still land so the panel reflects them.
func (m *Model) advance() {
	if !m.running {
		m.eng.ApplyPending()
		m.last = m.eng.Snapshot()
		return
	}
	if err := m.eng.Step(m.dt); err != nil {
		m.err = err
		m.running = false
		return
	}
	m.observe()
}

func (m *Model) observe() {
	m.last = m.eng.Snapshot()
	m.energy = appendCapped(m.energy, engine.KineticEnergy(m.last.Bodies))
	m.contacts = appendCapped(m.contacts, float64(m.last.Stats.Contacts))
}

func appendCapped(xs []float64, v float64) []float64 {
	if len(xs) == historyCapacity {
		copy(xs, xs[1:])
		xs = xs[:len(xs)-1]
	}
	return append(xs, v)
}

func (m *Model) scaleTemperature(f float64) {
	m.err = m.eng.SetTemperature(m.eng.Temperature() * f)
}

func (m *Model) reset() {
	if m.restart == nil {
		return
	}
	eng, err := m.restart()
	if err != nil {
		m.err = err
		return
	}
	m.eng, m.err = eng, nil
	m.energy = m.energy[:0]
	m.contacts = m.contacts[:0]
	m.resize(m.cols, m.rows)
	m.observe()
	m.draw()
}

// resize fits the arena into at most cols x rows characters, keeping its
// aspect ratio. Braille dots are close enough to square that one scale
// serves both axes.
func (m *Model) resize(cols, rows int) {
	cols, rows = max(cols, minCols), max(rows, minRows)
	m.cols, m.rows = cols, rows
	aw, ah, _ := m.eng.Arena()
	m.scale = min(float64(cols*2)/aw, float64(rows*4)/ah)
	w := min(cols, max(1, int(math.Ceil(aw*m.scale/2))))
	h := min(rows, max(1, int(math.Ceil(ah*m.scale/4))))
	m.canvas = NewCanvas(w, h)
}

func (m *Model) draw() {
	m.canvas.Clear()
	for i := range m.last.Bodies {
		m.plot(&m.last.Bodies[i])
	}
}

func (m *Model) plot(b *dynamo.Body) {
	x := int(math.Round(b.Pos.X * m.scale))
	y := int(math.Round(b.Pos.Y * m.scale))
	r := int(math.Round(b.Radius() * m.scale))
	if r <= 2 {
		m.canvas.FillCircle(x, y, r)
		return
	}
	m.canvas.DrawCircle(x, y, r)
}

// Running reports whether ticks advance the engine.
func (m Model) Running() bool { return m.running }

// Engine returns the engine currently on screen, which changes after a reset.
func (m Model) Engine() *engine.Engine { return m.eng }

// Err is the last error from a step, a temperature change or a reset.
func (m Model) Err() error { return m.err }

// View renders the TUI interface.
func (m Model) View() string {
	canvasView := canvasStyle.Render(m.styles.bodies.Render(strings.TrimSuffix(m.canvas.String(), "\n")))

	var s strings.Builder
	s.WriteString(m.styles.header.Render(strings.ToUpper(m.title)) + "\n")
	if m.running {
		s.WriteString(m.styles.running.Render("RUNNING"))
	} else {
		s.WriteString(m.styles.paused.Render("PAUSED"))
	}
	s.WriteString("\n\n")

	stats := m.last.Stats
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Tick", fmt.Sprintf("%d", m.last.Tick))
	row("Time", fmt.Sprintf("%.2fs", m.last.Time))
	row("Bodies", fmt.Sprintf("%d", len(m.last.Bodies)))
	row("Temperature", fmt.Sprintf("%.3f", m.eng.Temperature()))
	if n := len(m.energy); n > 0 {
		row("Energy", fmt.Sprintf("%.2f", m.energy[n-1]))
	}
	row("Contacts", fmt.Sprintf("%d (total %d)", stats.Contacts, stats.TotalContacts))
	row("Wall hits", fmt.Sprintf("%d", stats.TotalWallHits))
	row("Theme", Themes[m.theme].Name)

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy,
			asciigraph.Height(6),
			asciigraph.Width(statsWidth-14),
			asciigraph.Caption("kinetic energy"),
		)
		s.WriteString("\n" + m.styles.graph.Render(chart) + "\n")
	}
	s.WriteString("\n" + labelStyle.Render("Contacts/tick") + m.styles.muted.Render(Sparkline(m.contacts, statsWidth-18)) + "\n")

	if m.err != nil {
		s.WriteString("\n" + m.styles.paused.Render("error: "+m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render(strings.Join([]string{
		hint("space", "pause"), hint("+/-", "temp"), hint("r", "reset"),
	}, "  ") + "\n" + strings.Join([]string{
		hint("t", "theme"), hint("?", "help"), hint("q", "quit"),
	}, "  ")))

	view := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.help {
		return m.helpView() + "\n\n" + view
	}
	return view
}

func (m Model) helpView() string {
	lines := []string{
		"space    pause / resume",
		"+ = up   raise temperature (x" + fmt.Sprintf("%.2f", m.tempStep) + ")",
		"- _ down lower temperature (/" + fmt.Sprintf("%.2f", m.tempStep) + ")",
		"r        reseed the scenario",
		"t        cycle themes",
		"?        toggle this help",
		"q        quit",
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Themes[m.theme].Accent).
		Padding(0, 2)
	return box.Render(m.styles.header.Render("KEYS") + "\n\n" + strings.Join(lines, "\n"))
}

// Run takes over the terminal until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
