package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Choice is one entry of the start menu.
type Choice struct {
	Name        string
	Description string
}

// Launch builds the live model for the chosen entry.
type Launch func(name string) (Model, error)

var (
	menuTitle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	menuSub      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	menuCursor   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	menuSelected = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuDesc     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	menuItem     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuItemDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("#444455"))
)

// Picker lists presets and hands over to a live Model once one is chosen.
type Picker struct {
	choices []Choice
	launch  Launch
	cursor  int
	live    *Model
	err     error
	width   int
	height  int
}

func NewPicker(choices []Choice, launch Launch) Picker {
	return Picker{choices: choices, launch: launch}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.live != nil {
		if size, ok := msg.(tea.WindowSizeMsg); ok {
			p.width, p.height = size.Width, size.Height
		}
		next, cmd := p.live.Update(msg)
		live := next.(Model)
		p.live = &live
		return p, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width, p.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return p, tea.Quit
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down", "j":
			if p.cursor < len(p.choices)-1 {
				p.cursor++
			}
		case "enter", " ":
			return p.start()
		}
	}
	return p, nil
}

func (p Picker) start() (tea.Model, tea.Cmd) {
	if len(p.choices) == 0 {
		return p, nil
	}
	live, err := p.launch(p.choices[p.cursor].Name)
	if err != nil {
		p.err = err
		return p, nil
	}
	p.err = nil
	if p.width > 0 {
		next, _ := live.Update(tea.WindowSizeMsg{Width: p.width, Height: p.height})
		live = next.(Model)
	}
	p.live = &live
	return p, live.Init()
}

// Selected returns the highlighted entry name.
func (p Picker) Selected() string {
	if len(p.choices) == 0 {
		return ""
	}
	return p.choices[p.cursor].Name
}

// Live returns the running model once a choice has been launched.
func (p Picker) Live() (Model, bool) {
	if p.live == nil {
		return Model{}, false
	}
	return *p.live, true
}

func (p Picker) View() string {
	if p.live != nil {
		return p.live.View()
	}
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render("PARTICLESIM") + "\n")
	b.WriteString("    " + menuSub.Render("elastic collisions in a box") + "\n")
	b.WriteString("    " + menuSub.Render("───────────────────────────") + "\n\n")
	for i, c := range p.choices {
		if i == p.cursor {
			fmt.Fprintf(&b, "    %s %s  %s\n",
				menuCursor.Render("▸"),
				menuSelected.Render(fmt.Sprintf("%-10s", c.Name)),
				menuDesc.Render(c.Description))
			continue
		}
		fmt.Fprintf(&b, "    %s  %s\n",
			menuItem.Render(fmt.Sprintf("  %-10s", c.Name)),
			menuItemDesc.Render(c.Description))
	}
	if p.err != nil {
		b.WriteString("\n    " + StatusError.Render(p.err.Error()) + "\n")
	}
	b.WriteString("\n    " + hint("j/k", "navigate") + "  " + hint("enter", "start") + "  " + hint("q", "quit") + "\n")
	return b.String()
}

// RunPicker takes over the terminal with the start menu.
func RunPicker(p Picker) error {
	_, err := tea.NewProgram(p, tea.WithAltScreen()).Run()
	return err
}
