// Package catalog provides the model catalog tab: every routable model and,
// on demand, the providers that serve it.
package catalog

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

type keyMap struct {
	Details key.Binding
	Filter  key.Binding
	Close   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Details: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "show providers"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close / clear filter"),
		),
	}
}

// Model represents the models tab state.
type Model struct {
	state       *app.State
	filterInput textinput.Model
	spinner     components.ResourceSpinner
	keys        keyMap
	table       table.Model
	rows        []models.Model
	detailID    models.ID
	width       int
	height      int
	filtering   bool
}

// New creates a new models tab.
func New(state *app.State) *Model {
	filterInput := textinput.New()
	filterInput.Prompt = "/ "
	filterInput.Placeholder = "name, id or category"
	filterInput.CharLimit = 64
	filterInput.Width = 30

	t := table.New(
		table.WithColumns(columns(30, 30)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(tableStyles())

	return &Model{
		state:       state,
		table:       t,
		filterInput: filterInput,
		spinner:     components.NewResourceSpinner("models"),
		keys:        defaultKeyMap(),
	}
}

func tableStyles() table.Styles {
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
	return s
}

func columns(nameWidth, descWidth int) []table.Column {
	return []table.Column{
		{Title: "Name", Width: nameWidth},
		{Title: "ID", Width: 24},
		{Title: "Category", Width: 12},
		{Title: "Description", Width: descWidth},
	}
}

// Init initializes the models tab.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Capturing reports whether the filter input owns the keyboard.
func (m *Model) Capturing() bool {
	return m.filtering
}

// Update handles messages for the models tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	if tick, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		return m, cmd
	}
	if m.filtering {
		return m.updateFilter(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	m.syncRows()

	switch {
	case key.Matches(keyMsg, m.keys.Filter):
		m.filtering = true
		return m, m.filterInput.Focus()

	case key.Matches(keyMsg, m.keys.Details):
		i := m.table.Cursor()
		if i < 0 || i >= len(m.rows) {
			return m, nil
		}
		m.detailID = m.rows[i].ID
		id := m.detailID
		return m, func() tea.Msg { return app.LoadOfferingsMsg{ModelID: id} }

	case key.Matches(keyMsg, m.keys.Close):
		switch {
		case !m.detailID.IsZero():
			m.detailID = ""
		case m.filterInput.Value() != "":
			m.filterInput.SetValue("")
			m.syncRows()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(keyMsg)
	return m, cmd
}

func (m *Model) updateFilter(msg tea.Msg) (app.Tab, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter:
			m.filtering = false
			m.filterInput.Blur()
			return m, nil
		case tea.KeyEsc:
			m.filtering = false
			m.filterInput.Blur()
			m.filterInput.SetValue("")
			m.syncRows()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.table.SetCursor(0)
	m.syncRows()
	return m, cmd
}

// syncRows rebuilds the table from the catalog in state, applying the filter.
func (m *Model) syncRows() {
	query := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))

	m.rows = m.rows[:0]
	rows := []table.Row{}
	for _, mdl := range m.state.Catalog().Models {
		if query != "" && !matches(mdl, query) {
			continue
		}
		m.rows = append(m.rows, mdl)
		rows = append(rows, table.Row{
			mdl.Name,
			mdl.ID.String(),
			valueOr(mdl.Category, "-"),
			mdl.Description,
		})
	}
	m.table.SetRows(rows)
	if len(rows) > 0 && m.table.Cursor() >= len(rows) {
		m.table.SetCursor(len(rows) - 1)
	}
}

func matches(mdl models.Model, query string) bool {
	return strings.Contains(strings.ToLower(mdl.Name), query) ||
		strings.Contains(strings.ToLower(mdl.ID.String()), query) ||
		strings.Contains(strings.ToLower(mdl.Category), query)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// SetSize sets the available size for the models tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(3, height/2-4))

	nameWidth := min(max(width/4, 16), 32)
	descWidth := max(width-nameWidth-24-12-20, 10)
	m.table.SetColumns(columns(nameWidth, descWidth))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Details, m.keys.Filter, m.keys.Close}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Details},
		{m.keys.Filter, m.keys.Close},
	}
}
