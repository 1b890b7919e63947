// Package info provides the info tab: session, backend configuration,
// request log statistics and build information.
package info

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/app"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/config"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/components"
)

// ConfigSource returns the configuration currently in effect. The services
// manager satisfies it and swaps the value on reload.
type ConfigSource interface {
	Config() *config.Config
}

// keyMap defines the key bindings specific to the info tab.
type keyMap struct {
	Copy key.Binding
	Up   key.Binding
	Down key.Binding
}

// defaultKeyMap returns the default key bindings for the info tab.
func defaultKeyMap() keyMap {
	return keyMap{
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy API URL"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
	}
}

// Model represents the info tab state.
type Model struct {
	state      *app.State
	config     ConfigSource
	successBar components.RatioBar
	keys       keyMap
	viewport   viewport.Model
	width      int
	height     int
}

// New creates a new info model.
func New(state *app.State, cfg ConfigSource) *Model {
	return &Model{
		state:      state,
		config:     cfg,
		successBar: components.NewRatioBar("Success"),
		keys:       defaultKeyMap(),
		viewport:   viewport.New(0, 0),
	}
}

// Init initializes the info tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the info tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if key.Matches(keyMsg, m.keys.Copy) {
		if url := m.state.APIURL(); url != "" {
			return m, func() tea.Msg {
				return app.CopyToClipboardMsg{Text: url, Label: "API URL"}
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(keyMsg)
	return m, cmd
}

func (m *Model) currentConfig() *config.Config {
	if m.config == nil {
		return nil
	}
	return m.config.Config()
}

// SetSize sets the available size for the info tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Copy, m.keys.Up, m.keys.Down}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Copy},
		{m.keys.Up, m.keys.Down},
	}
}
