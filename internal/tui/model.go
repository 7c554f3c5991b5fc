// Package tui provides the BubbleTea-based preference picker.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/themed/internal/model"
	"github.com/jmylchreest/themed/internal/theme"
)

// Resolver is the preference state the picker drives.
// theme.Resolver satisfies it.
type Resolver interface {
	Preference() model.Preference
	Effective() model.Appearance
	SetPreference(p model.Preference)
	Toggle()
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)
	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
	lightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("15")).
			Padding(0, 1)
	darkStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("0")).
			Padding(0, 1)
)

// Model is the picker model.
type Model struct {
	resolver Resolver
	changes  <-chan theme.Change

	choices    []model.Preference
	cursor     int
	preference model.Preference
	appearance model.Appearance

	keys     KeyMap
	help     help.Model
	width    int
	showHelp bool

	statusMsg string
}

// New creates a picker over resolver. changes delivers applied changes
// made elsewhere (OS signal, another process); it may be nil.
func New(resolver Resolver, changes <-chan theme.Change) Model {
	m := Model{
		resolver: resolver,
		changes:  changes,
		choices:  model.Preferences(),
		keys:     DefaultKeyMap(),
		help:     help.New(),
	}
	m.refresh()
	m.cursor = m.indexOf(m.preference)
	return m
}

// Preference returns the preference shown by the picker.
func (m Model) Preference() model.Preference {
	return m.preference
}

// Appearance returns the appearance shown by the picker.
func (m Model) Appearance() model.Appearance {
	return m.appearance
}

// Cursor returns the highlighted choice.
func (m Model) Cursor() model.Preference {
	return m.choices[m.cursor]
}

type changeMsg theme.Change

type clearStatusMsg struct{}

// Init starts listening for changes.
func (m Model) Init() tea.Cmd {
	return m.waitForChange
}

// waitForChange blocks until the next applied change.
func (m Model) waitForChange() tea.Msg {
	if m.changes == nil {
		return nil
	}
	change, ok := <-m.changes
	if !ok {
		return nil
	}
	return changeMsg(change)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case changeMsg:
		m.refresh()
		return m, m.waitForChange

	case clearStatusMsg:
		m.statusMsg = ""
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		p := m.choices[m.cursor]
		m.resolver.SetPreference(p)
		m.refresh()
		return m.withStatus(fmt.Sprintf("preference set to %s", p))

	case key.Matches(msg, m.keys.Toggle):
		m.resolver.Toggle()
		m.refresh()
		m.cursor = m.indexOf(m.preference)
		return m.withStatus(fmt.Sprintf("toggled to %s", m.appearance))
	}

	return m, nil
}

func (m Model) withStatus(text string) (tea.Model, tea.Cmd) {
	m.statusMsg = text
	return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func (m *Model) refresh() {
	m.preference = m.resolver.Preference()
	m.appearance = m.resolver.Effective()
}

func (m Model) indexOf(p model.Preference) int {
	for i, c := range m.choices {
		if c == p {
			return i
		}
	}
	return 0
}

// View renders the picker.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Theme"))
	sb.WriteString("\n")

	for i, choice := range m.choices {
		cursor := "  "
		label := choice.String()
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
			label = cursorStyle.Render(label)
		}

		marker := " "
		if choice == m.preference {
			marker = "*"
		}

		sb.WriteString(fmt.Sprintf("%s%s %s", cursor, marker, label))
		if choice == model.PreferenceSystem {
			sb.WriteString(dimStyle.Render("  follows the desktop"))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString("appearance ")
	if m.appearance == model.AppearanceDark {
		sb.WriteString(darkStyle.Render(m.appearance.String()))
	} else {
		sb.WriteString(lightStyle.Render(m.appearance.String()))
	}
	sb.WriteString("\n\n")

	if m.statusMsg != "" {
		sb.WriteString(dimStyle.Render(m.statusMsg))
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.View(m.keys))
	sb.WriteString("\n")

	return sb.String()
}

// Run starts the picker on resolver and blocks until the user quits.
// onChange registers an observer; pass the resolver's OnChange.
func Run(resolver Resolver, onChange func(func(theme.Change)) func()) error {
	var changes chan theme.Change
	if onChange != nil {
		changes = make(chan theme.Change, 4)
		unregister := onChange(func(c theme.Change) {
			select {
			case changes <- c:
			default:
			}
		})
		defer unregister()
	}

	p := tea.NewProgram(New(resolver, changes))
	_, err := p.Run()
	return err
}
