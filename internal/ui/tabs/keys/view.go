package keys

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/styles"
)

// View renders the keys tab.
func (m *Model) View() string {
	m.syncRows()

	ls := m.state.KeysState()
	if components.FirstLoad(ls) {
		return m.spinner.RenderCentered(ls, m.width, m.height)
	}

	sections := []string{m.renderTitle(ls)}

	switch {
	case m.creating:
		sections = append(sections, m.renderCreateForm())
	case m.deleting != nil:
		sections = append(sections, m.renderDeleteConfirm(), m.renderTable())
	default:
		if banner := m.renderSecretBanner(); banner != "" {
			sections = append(sections, banner)
		}
		sections = append(sections, m.renderTable())
	}

	sections = append(sections, m.renderFooter())

	return styles.DocStyle.
		Width(m.width).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderTitle(ls models.LoadState) string {
	title := styles.TitleStyle.Render("API Keys")

	active := 0
	for _, k := range m.rows {
		if !k.Disabled {
			active++
		}
	}
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%d keys, ", len(m.rows))) +
		styles.GetKeyStatusStyle(false).Render(fmt.Sprintf("%d active", active)) +
		styles.HelpStyle.Render(", ") +
		styles.GetKeyStatusStyle(true).Render(fmt.Sprintf("%d disabled", len(m.rows)-active))
	if status := m.spinner.Status(ls); status != "" {
		subtitle += "  " + status
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth(minWidth int) int {
	return max(m.width-6, minWidth)
}

func (m *Model) renderTable() string {
	if len(m.rows) == 0 {
		return m.renderEmptyState()
	}
	return styles.CardStyle.Width(m.cardWidth(60)).Render(m.table.View())
}

func (m *Model) renderEmptyState() string {
	var hint string
	if err := m.state.KeysState().Err; err != nil {
		hint = styles.ErrorTextStyle.Render("Could not load keys: " + client.Message(err))
	} else {
		hint = styles.HelpStyle.Render("Create a key to start calling the router.")
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.SubTitleStyle.Render("No API Keys"),
		hint,
		"",
		styles.InfoTextStyle.Render("Press 'n' to create a key, 'r' to reload"),
		"",
	)
	return styles.CardStyle.Width(m.cardWidth(40)).Render(content)
}

// renderSecretBanner shows the one-time secret of a freshly created key.
func (m *Model) renderSecretBanner() string {
	pending, ok := m.pendingSecret()
	if !ok {
		return ""
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.WarningTextStyle.Bold(true).Render(fmt.Sprintf("New secret for %q", pending.Name)),
		styles.SecretStyle.Render(pending.Secret),
		styles.HelpStyle.Render("This is the only time the secret is shown. c: copy | esc: hide"),
	)
	return styles.FocusedBorderStyle.Width(m.cardWidth(40)).Render(content)
}

func (m *Model) renderCreateForm() string {
	width := min(max(m.width-10, 50), 80)

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.CardTitleStyle.Render("Create API Key"),
		styles.FocusedStyle.Render("> Name:"),
		styles.FocusedBorderStyle.Width(width-10).Render(m.nameInput.View()),
		"",
		styles.HelpStyle.Render("Enter: create | Esc: cancel"),
	)
	return styles.ModalContentStyle.Width(width).Render(content)
}

func (m *Model) renderDeleteConfirm() string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.WarningTextStyle.Bold(true).Render("Delete API Key?"),
		"",
		"Applications using this key will stop working:",
		styles.ErrorTextStyle.Render(m.deleting.Name),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			styles.ButtonActiveStyle.Render(" (Y)es "),
			"  ",
			styles.ButtonInactiveStyle.Render(" (N)o "),
		),
		"",
	)

	return styles.CenterHorizontal(
		styles.ModalContentStyle.Width(50).Render(content),
		m.width,
	)
}

func (m *Model) renderFooter() string {
	var shortcuts []string
	switch {
	case m.creating:
		shortcuts = []string{
			styles.HelpKeyStyle.Render("Enter") + " create",
			styles.HelpKeyStyle.Render("Esc") + " cancel",
		}
	case m.deleting != nil:
		shortcuts = []string{
			styles.HelpKeyStyle.Render("Y") + " confirm",
			styles.HelpKeyStyle.Render("N") + " cancel",
		}
	default:
		shortcuts = []string{
			styles.HelpKeyStyle.Render("n") + " new",
			styles.HelpKeyStyle.Render("d") + " delete",
			styles.HelpKeyStyle.Render("t") + " toggle",
			styles.HelpKeyStyle.Render("c") + " copy secret",
			styles.HelpKeyStyle.Render("r") + " refresh",
		}
	}

	return lipgloss.NewStyle().
		MarginTop(1).
		Foreground(styles.TextMuted).
		Render(strings.Join(shortcuts, " | "))
}
