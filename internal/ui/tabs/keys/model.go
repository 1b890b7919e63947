// Package keys provides the API key management tab.
package keys

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/app"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/styles"
)

const createdLayout = "2006-01-02 15:04"

// keyMap defines the key bindings specific to the keys tab.
type keyMap struct {
	Create  key.Binding
	Delete  key.Binding
	Toggle  key.Binding
	Copy    key.Binding
	Dismiss key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Create: key.NewBinding(
			key.WithKeys("n", "a"),
			key.WithHelp("n", "new key"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("t", " "),
			key.WithHelp("t/space", "enable/disable"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c", "y"),
			key.WithHelp("c", "copy secret"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "hide secret"),
		),
	}
}

// Model represents the keys tab state.
type Model struct {
	state     *app.State
	nameInput textinput.Model
	spinner   components.ResourceSpinner
	keys      keyMap
	table     table.Model
	rows      []models.APIKey
	deleting  *models.APIKey
	width     int
	height    int
	creating  bool
}

// New creates a new keys tab.
func New(state *app.State) *Model {
	nameInput := textinput.New()
	nameInput.Placeholder = "e.g. production"
	nameInput.CharLimit = 64
	nameInput.Width = 40

	t := table.New(
		table.WithColumns(columns(30)),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Subtle).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Primary)
	s.Selected = s.Selected.
		Foreground(styles.TextPrimary).
		Background(styles.BgAccent).
		Bold(true)
	t.SetStyles(s)

	return &Model{
		state:     state,
		table:     t,
		nameInput: nameInput,
		spinner:   components.NewResourceSpinner("API keys"),
		keys:      defaultKeyMap(),
	}
}

func columns(nameWidth int) []table.Column {
	return []table.Column{
		{Title: "Name", Width: nameWidth},
		{Title: "ID", Width: 8},
		{Title: "Status", Width: 10},
		{Title: "Created", Width: 17},
		{Title: "Secret", Width: 14},
	}
}

// Init initializes the keys tab.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Capturing reports whether the name form or the delete prompt owns the keyboard.
func (m *Model) Capturing() bool {
	return m.creating || m.deleting != nil
}

// Update handles messages for the keys tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	if tick, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		return m, cmd
	}
	if m.creating {
		return m.updateCreateForm(msg)
	}
	if m.deleting != nil {
		return m.updateDeleteConfirm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	m.syncRows()
	selected, hasSelection := m.selected()

	switch {
	case key.Matches(keyMsg, m.keys.Create):
		m.creating = true
		m.nameInput.SetValue("")
		return m, m.nameInput.Focus()

	case key.Matches(keyMsg, m.keys.Delete):
		if hasSelection {
			m.deleting = &selected
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Toggle):
		if hasSelection {
			return m, sendMsg(app.ToggleKeyMsg{ID: selected.ID})
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Copy):
		if pending, ok := m.pendingSecret(); ok {
			return m, sendMsg(app.CopyToClipboardMsg{
				Text:  pending.Secret,
				Label: "secret for " + pending.Name,
				KeyID: pending.ID,
			})
		}
		return m, sendMsg(app.AddNotificationMsg{
			Type:     app.NotificationWarning,
			Message:  "Secrets are only shown once, right after a key is created",
			Duration: app.QuickNotificationDuration,
		})

	case key.Matches(keyMsg, m.keys.Dismiss):
		if pending, ok := m.pendingSecret(); ok {
			return m, sendMsg(app.ClearSecretMsg{ID: pending.ID})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(keyMsg)
	return m, cmd
}

func (m *Model) updateCreateForm(msg tea.Msg) (app.Tab, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			m.closeCreateForm()
			return m, nil
		case tea.KeyEnter:
			name := strings.TrimSpace(m.nameInput.Value())
			m.closeCreateForm()
			// Blank names are rejected by the store with a validation error.
			return m, sendMsg(app.CreateKeyMsg{Name: name})
		}
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m *Model) closeCreateForm() {
	m.creating = false
	m.nameInput.Blur()
}

func (m *Model) updateDeleteConfirm(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y", "Y":
		target := *m.deleting
		m.deleting = nil
		return m, sendMsg(app.DeleteKeyMsg{ID: target.ID, Name: target.Name})
	case "n", "N", "esc":
		m.deleting = nil
	}
	return m, nil
}

// syncRows copies the keys from state into the table.
func (m *Model) syncRows() {
	m.rows = m.state.Keys()
	rows := make([]table.Row, 0, len(m.rows))
	for _, k := range m.rows {
		created := "-"
		if !k.CreatedAt.IsZero() {
			created = k.CreatedAt.Local().Format(createdLayout)
		}
		rows = append(rows, table.Row{
			k.Name,
			k.ID.String(),
			k.StatusLabel(),
			created,
			k.MaskedSecret(),
		})
	}
	m.table.SetRows(rows)
	if len(rows) > 0 && m.table.Cursor() >= len(rows) {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m *Model) selected() (models.APIKey, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rows) {
		return models.APIKey{}, false
	}
	return m.rows[i], true
}

// pendingSecret returns the key whose one-time secret has not been
// dismissed yet. The selected row wins when several are pending.
func (m *Model) pendingSecret() (models.APIKey, bool) {
	if k, ok := m.selected(); ok && k.HasSecret() {
		return k, true
	}
	for _, k := range m.rows {
		if k.HasSecret() {
			return k, true
		}
	}
	return models.APIKey{}, false
}

// SetSize sets the available size for the keys tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(3, height-14))
	m.table.SetColumns(columns(min(max(width-65, 16), 40)))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.creating {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "create")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		}
	}
	return []key.Binding{m.keys.Create, m.keys.Delete, m.keys.Toggle, m.keys.Copy}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Create, m.keys.Delete},
		{m.keys.Toggle, m.keys.Copy, m.keys.Dismiss},
	}
}

func sendMsg(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
