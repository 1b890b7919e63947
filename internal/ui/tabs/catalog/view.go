package catalog

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	catalogsvc "github.com/j-veylop/easyrouter-dashboard-tui/internal/services/catalog"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/styles"
)

// View renders the models tab.
func (m *Model) View() string {
	if !m.filtering {
		m.syncRows()
	}

	snap := m.state.Catalog()
	if components.FirstLoad(snap.State) {
		return m.spinner.RenderCentered(snap.State, m.width, m.height)
	}

	sections := []string{m.renderTitle(snap)}

	if m.filtering || m.filterInput.Value() != "" {
		sections = append(sections, m.filterInput.View(), "")
	}

	switch {
	case len(snap.Models) == 0:
		sections = append(sections, m.renderEmptyState())
	case len(m.rows) == 0:
		sections = append(sections, styles.HelpStyle.Render("No models match the filter."))
	default:
		sections = append(sections, styles.CardStyle.Width(m.cardWidth()).Render(m.table.View()))
	}

	if !m.detailID.IsZero() {
		sections = append(sections, m.renderOfferings())
	}

	return styles.DocStyle.
		Width(m.width).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 60)
}

func (m *Model) renderTitle(snap catalogsvc.Snapshot) string {
	title := styles.TitleStyle.Render("Models")
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%d models from %d providers", len(snap.Models), len(snap.Providers)))
	if status := m.spinner.Status(snap.State); status != "" {
		subtitle += "  " + status
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderEmptyState() string {
	hint := styles.HelpStyle.Render("The catalog is empty.")
	if err := m.state.Catalog().State.Err; err != nil {
		hint = styles.ErrorTextStyle.Render("Could not load the catalog: " + client.Message(err))
	}
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.SubTitleStyle.Render("No Models"),
		hint,
		"",
		styles.InfoTextStyle.Render("Press 'r' to reload"),
		"",
	)
	return styles.CardStyle.Width(m.cardWidth()).Render(content)
}

// renderOfferings lists the providers serving the model opened with enter.
func (m *Model) renderOfferings() string {
	name := m.detailID.String()
	for _, mdl := range m.state.Catalog().Models {
		if mdl.ID == m.detailID {
			name = mdl.Name
			break
		}
	}

	rows := []string{styles.CardTitleStyle.Render("Providers for " + name)}

	offerings, ok := m.state.Offerings(m.detailID)
	switch {
	case !ok:
		rows = append(rows, m.spinner.Pending("Loading providers..."))
	case len(offerings) == 0:
		rows = append(rows, styles.HelpStyle.Render("No provider currently serves this model."))
	default:
		for _, o := range offerings {
			line := styles.FocusedStyle.Render(m.state.ProviderName(o.ProviderID))
			if o.Pricing != "" {
				line += "  " + styles.BalanceStyle.Render(o.Pricing)
			}
			rows = append(rows, line)
			if o.Endpoint != "" {
				rows = append(rows, styles.HelpStyle.Render("  endpoint: "+o.Endpoint))
			}
			if len(o.Features) > 0 {
				rows = append(rows, styles.HelpStyle.Render("  features: "+strings.Join(o.Features, ", ")))
			}
		}
	}

	rows = append(rows, "", styles.HelpStyle.Render("esc: close"))

	return styles.FocusedBorderStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}
