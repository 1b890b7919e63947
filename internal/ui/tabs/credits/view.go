package credits

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/app"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/styles"
)

// View renders the credits tab.
func (m *Model) View() string {
	m.syncRows()
	snap := m.state.Credits()

	sections := []string{
		styles.TitleStyle.Render("Credits"),
		m.renderBalance(snap.Balance, snap.State),
	}

	if len(snap.Ledger) == 0 {
		sections = append(sections, m.renderEmptyState())
	} else {
		sections = append(sections,
			m.renderChart(snap.Ledger),
			styles.CardStyle.Width(m.cardWidth()).Render(m.table.View()),
		)
	}

	return styles.DocStyle.
		Width(m.width).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 60)
}

func (m *Model) renderBalance(balance models.CreditBalance, ls models.LoadState) string {
	status := styles.HelpStyle.Render("Press 'o' to onramp credits")
	switch {
	case m.state.IsLoading(app.ResourceCredits):
		status = styles.InfoTextStyle.Render("Updating...")
	case ls.Err != nil:
		status = styles.ErrorTextStyle.Render("Could not load the ledger: " + client.Message(ls.Err))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.CardTitleStyle.Render("Balance"),
		styles.BalanceStyle.Render(fmt.Sprintf("%d credits", balance.Amount)),
		status,
	)
	return styles.CardStyle.Width(m.cardWidth()).Render(content)
}

func (m *Model) renderChart(ledger []models.LedgerEntry) string {
	var credited, debited int
	for _, e := range ledger {
		if e.Amount >= 0 {
			credited++
		} else {
			debited++
		}
	}

	last := ledger[0]
	summary := fmt.Sprintf("Last: %s %s",
		styles.GetAmountStyle(last.Amount).Render(formatAmount(last.Amount)),
		styles.HelpStyle.Render(last.Description))

	chart := components.RenderLineChart(runningBalance(ledger), m.cardWidth()-16, 6, "Running balance")
	legend := components.RenderLegend([]components.LegendItem{
		{Label: fmt.Sprintf("%d credits", credited), Color: styles.Success},
		{Label: fmt.Sprintf("%d debits", debited), Color: styles.Error},
	})

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, chart, "", legend, summary),
	)
}

func (m *Model) renderEmptyState() string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.SubTitleStyle.Render("No Ledger Entries"),
		styles.HelpStyle.Render("Credits you onramp show up here."),
		"",
	)
	return styles.CardStyle.Width(m.cardWidth()).Render(content)
}
