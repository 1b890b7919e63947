// Package credits provides the credits tab: balance, ledger and onramp.
package credits

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/app"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/styles"
)

const timeLayout = "2006-01-02 15:04:05"

type keyMap struct {
	Onramp key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Onramp: key.NewBinding(
			key.WithKeys("o", "+"),
			key.WithHelp("o", "onramp credits"),
		),
	}
}

// Model represents the credits tab state.
type Model struct {
	state  *app.State
	keys   keyMap
	table  table.Model
	width  int
	height int
}

// New creates a new credits tab.
func New(state *app.State) *Model {
	t := table.New(
		table.WithColumns(columns(30)),
		table.WithFocused(true),
		table.WithHeight(8),
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
		state: state,
		keys:  defaultKeyMap(),
		table: t,
	}
}

func columns(descWidth int) []table.Column {
	return []table.Column{
		{Title: "Time", Width: 19},
		{Title: "Kind", Width: 8},
		{Title: "Amount", Width: 10},
		{Title: "Description", Width: descWidth},
	}
}

// Init initializes the credits tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the credits tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if key.Matches(keyMsg, m.keys.Onramp) {
		if m.state.IsLoading(app.ResourceCredits) {
			return m, nil
		}
		return m, func() tea.Msg { return app.OnrampMsg{} }
	}

	m.syncRows()
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(keyMsg)
	return m, cmd
}

func (m *Model) syncRows() {
	ledger := m.state.Credits().Ledger
	rows := make([]table.Row, 0, len(ledger))
	for _, e := range ledger {
		rows = append(rows, table.Row{
			e.Timestamp.Local().Format(timeLayout),
			string(e.Kind),
			formatAmount(e.Amount),
			e.Description,
		})
	}
	m.table.SetRows(rows)
}

// runningBalance returns the balance after each ledger entry, oldest first.
// The ledger is stored newest first.
func runningBalance(ledger []models.LedgerEntry) []float64 {
	points := make([]float64, 0, len(ledger))
	var total int64
	for i := len(ledger) - 1; i >= 0; i-- {
		total += ledger[i].Amount
		points = append(points, float64(max(total, 0)))
	}
	return points
}

func formatAmount(amount int64) string {
	if amount > 0 {
		return fmt.Sprintf("+%d", amount)
	}
	return fmt.Sprintf("%d", amount)
}

// SetSize sets the available size for the credits tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(3, height-24))
	m.table.SetColumns(columns(max(width-19-8-10-20, 12)))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Onramp}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.keys.Onramp}}
}
