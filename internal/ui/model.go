package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"home-app/internal/persistence"
	"home-app/internal/router"
)

// DefaultTickInterval is how often the model dispatches the router.
const DefaultTickInterval = 100 * time.Millisecond

type tickMsg time.Time

// Model is the render loop. Each tick it dispatches the active page with the
// keys received since the previous tick, stores UIState and gives the
// persistence layer a chance to autosave. The router and the persistence
// object are only touched from here.
type Model struct {
	router  *router.Router
	persist *persistence.Persistence
	state   UIState
	theme   Theme
	every   time.Duration

	keys   []string
	frame  *router.Frame
	width  int
	height int
}

// NewModel creates the model. state is usually LoadUIState(p).
func NewModel(r *router.Router, p *persistence.Persistence, state UIState, every time.Duration) *Model {
	if every <= 0 {
		every = DefaultTickInterval
	}
	return &Model{
		router:  r,
		persist: p,
		state:   state,
		theme:   NewTheme(state.Theme),
		every:   every,
	}
}

// State returns the current UIState.
func (m *Model) State() UIState { return m.state }

func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.every, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tickMsg:
		if !m.Tick() {
			return m, tea.Quit
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) handleKey(key string) tea.Cmd {
	switch key {
	case "ctrl+c", "q":
		return tea.Quit
	}
	// Global shortcuts are off while an overlay disables the background UI.
	if m.router.UIEnabled() {
		switch key {
		case "t":
			m.theme = m.theme.Next()
			m.state.Theme = m.theme.Name
			return nil
		case "?":
			m.state.ShowHelp = !m.state.ShowHelp
			return nil
		}
	}
	m.keys = append(m.keys, key)
	return nil
}

// Tick runs one frame. It returns false once the router has no page left.
func (m *Model) Tick() bool {
	f := router.NewFrame(m.keys...)
	m.keys = nil
	m.router.Dispatch(f)
	m.frame = f

	m.persist.SetValue(StateKey, m.state)
	m.persist.MaybeAutosave()
	return m.router.Len() > 0
}

func (m *Model) View() string {
	if m.frame == nil {
		return ""
	}

	title := m.theme.Title
	if !m.router.UIEnabled() {
		title = m.theme.Dimmed
	}
	if m.width > 0 {
		title = title.Width(m.width)
	}

	status := m.theme.Status
	if m.width > 0 {
		status = status.Width(m.width)
	}

	parts := []string{
		title.Render(strings.Join(m.frame.TitleBar(), "  │  ")),
		m.theme.Content.Render(m.frame.Content()),
		status.Render(strings.Join(m.frame.StatusBar(), "  │  ")),
	}
	if m.state.ShowHelp {
		parts = append(parts, m.theme.Help.Render("s settings  p panels  w window  t theme  ? help  q quit"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
