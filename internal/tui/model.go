package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/recall/internal/model"
	"github.com/verte-zerg/recall/internal/round"
)

// timerMsg reports that the controller changed state on its own.
type timerMsg struct{}

type keyMap struct {
	Confirm key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
	Quit:    key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

var (
	digitStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Underline(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	accentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#73D13D")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

var errNotDigit = errors.New("digits only")

// Notifier returns a one-slot channel and a notify func for round.Deps.
// Notifications coalesce: the UI always re-reads the latest snapshot.
func Notifier() (<-chan struct{}, func(round.Snapshot)) {
	ch := make(chan struct{}, 1)
	return ch, func(round.Snapshot) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func waitForTimer(events <-chan struct{}) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return nil
		}
		return timerMsg{}
	}
}

// Model implements the Bubble Tea game UI.
type Model struct {
	ctrl   *round.Controller
	events <-chan struct{}
	chunk  int

	snap  round.Snapshot
	input textinput.Model
	help  help.Model

	width  int
	height int
}

// NewModel constructs a game UI bound to ctrl. events should be the channel
// returned by Notifier whose func was passed to the controller.
func NewModel(ctrl *round.Controller, events <-chan struct{}, chunk int) *Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "type the digits"
	ti.Validate = func(s string) error {
		if !allDigits(s) {
			return errNotDigit
		}
		return nil
	}
	if chunk <= 0 {
		chunk = 3
	}
	return &Model{
		ctrl:   ctrl,
		events: events,
		chunk:  chunk,
		snap:   ctrl.Snapshot(),
		input:  ti,
		help:   help.New(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return waitForTimer(m.events)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case timerMsg:
		cmd := m.apply(m.ctrl.Snapshot())
		return m, tea.Batch(cmd, waitForTimer(m.events))
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		if m.snap.Phase == model.PhaseInput {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			m.syncInput()
			return m, cmd
		}
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		m.ctrl.Close()
		return m, tea.Quit
	}
	if key.Matches(msg, keys.Confirm) {
		switch m.snap.Phase {
		case model.PhaseReady:
			return m, m.apply(m.ctrl.Start())
		case model.PhaseInput:
			if !m.ctrl.CanSubmit() {
				return m, nil
			}
			return m, m.apply(m.ctrl.Submit())
		case model.PhaseResult:
			return m, m.apply(m.ctrl.Next())
		}
		return m, nil
	}
	if m.snap.Phase != model.PhaseInput {
		return m, nil
	}
	if msg.Type == tea.KeyRunes && !allDigits(string(msg.Runes)) {
		return m, nil
	}
	if msg.Type == tea.KeySpace {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.syncInput()
	return m, cmd
}

// syncInput forwards the text input to the controller and mirrors back the
// value it accepted. Pasted non-digits are dropped.
func (m *Model) syncInput() {
	value := m.input.Value()
	if value == m.snap.Input {
		return
	}
	m.snap = m.ctrl.ChangeInput(digitsOnly(value))
	if m.input.Value() != m.snap.Input {
		m.input.SetValue(m.snap.Input)
	}
}

// apply stores snap and moves the text input in or out of focus when the
// phase changes.
func (m *Model) apply(snap round.Snapshot) tea.Cmd {
	prev := m.snap.Phase
	m.snap = snap
	if snap.Phase == prev {
		return nil
	}
	if snap.Phase == model.PhaseInput {
		m.input.Reset()
		m.input.Err = nil
		m.input.CharLimit = snap.Level
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

// View implements tea.Model.
func (m *Model) View() string {
	contentWidth := 0
	if m.width > 0 {
		contentWidth = int(float64(m.width) * 0.70)
		if contentWidth < 1 {
			contentWidth = 1
		}
	}
	content := m.renderBody(contentWidth)
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n\n" + footer
	}
	content = lipgloss.NewStyle().Width(contentWidth).Align(lipgloss.Center).Render(content)
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderBody(width int) string {
	snap := m.snap
	header := accentStyle.Render(fmt.Sprintf("Level %d", snap.Level))
	switch snap.Phase {
	case model.PhaseShow:
		digits := wrapStyledRunes(buildDigitRunes(snap.Target, m.chunk, digitStyle), width)
		if snap.LastRoundFailed {
			header += mutedStyle.Render("  Last round missed. Back to level 1.")
		}
		return strings.Join([]string{
			header,
			"",
			digits,
			"",
			mutedStyle.Render(fmt.Sprintf("Hiding in %ds", snap.Countdown)),
		}, "\n")
	case model.PhaseInput:
		lines := []string{
			header,
			"",
			mutedStyle.Render("Type the number you saw."),
			"",
			m.input.View(),
			mutedStyle.Render(fmt.Sprintf("%d/%d", len(snap.Input), snap.Level)),
		}
		if m.input.Err != nil {
			lines = append(lines, incorrectStyle.Render(m.input.Err.Error()))
		}
		return strings.Join(lines, "\n")
	case model.PhaseResult:
		return m.renderResult(width)
	default:
		lines := []string{
			accentStyle.Render("recall"),
			"",
			"Memorize the digits, then type them back.",
			"",
			mutedStyle.Render("Press Enter to start."),
		}
		return strings.Join(lines, "\n")
	}
}

func (m *Model) renderResult(width int) string {
	out := m.snap.Outcome
	if out == nil {
		return ""
	}
	title := successStyle.Render(out.Message)
	if !out.Success {
		title = incorrectStyle.Render(out.Message)
	}
	target := wrapStyledRunes(buildDigitRunes(out.Target, m.chunk, correctStyle), width)
	answer := wrapStyledRunes(buildMarkRunes(out.Marks, m.chunk, correctStyle, incorrectStyle), width)
	return strings.Join([]string{
		title,
		"",
		mutedStyle.Render("number ") + target,
		mutedStyle.Render("yours  ") + answer,
	}, "\n")
}

func (m *Model) renderFooter() string {
	confirm := keys.Confirm
	bindings := []key.Binding{keys.Quit}
	switch m.snap.Phase {
	case model.PhaseReady:
		confirm.SetHelp("enter", "start")
		bindings = append([]key.Binding{confirm}, bindings...)
	case model.PhaseInput:
		confirm.SetHelp("enter", "submit")
		bindings = append([]key.Binding{confirm}, bindings...)
	case model.PhaseResult:
		if m.snap.Outcome != nil && !m.snap.Outcome.Success {
			confirm.SetHelp("enter", "start over")
		} else {
			confirm.SetHelp("enter", "next level")
		}
		bindings = append([]key.Binding{confirm}, bindings...)
	}
	best := footerStyle.Render(fmt.Sprintf("Best %d", m.snap.Best))
	return best + "  " + m.help.ShortHelpView(bindings)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func digitsOnly(s string) string {
	if allDigits(s) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Snapshot returns the state last rendered by the UI.
func (m *Model) Snapshot() round.Snapshot {
	return m.snap
}

var _ tea.Model = (*Model)(nil)
