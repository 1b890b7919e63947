package signin

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/styles"
)

// View renders the sign-in form centered in the available area.
func (m *Model) View() string {
	cardWidth := min(max(m.width-10, 50), 64)

	rows := []string{
		styles.TitleStyle.Render("EasyRouter"),
		styles.HelpStyle.Render(m.subtitle()),
		"",
		m.renderField("Email", m.emailInput.View(), m.focusedField == fieldEmail, cardWidth),
		m.renderField("Password", m.passwordInput.View(), m.focusedField == fieldPassword, cardWidth),
		m.renderButton(),
		"",
	}

	if status := m.renderStatus(); status != "" {
		rows = append(rows, status, "")
	}

	rows = append(rows, styles.HelpStyle.Render("Tab: next field | Enter: submit | Ctrl+T: switch mode"))

	card := styles.ModalContentStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
	return styles.CenterBoth(card, m.width, m.height)
}

func (m *Model) subtitle() string {
	if url := m.state.APIURL(); url != "" {
		return m.mode.String() + " to " + url
	}
	return m.mode.String()
}

func (m *Model) renderField(label, input string, focused bool, cardWidth int) string {
	labelStr := styles.BlurredStyle.Render("  " + label + ":")
	inputStyle := styles.BlurredBorderStyle
	if focused {
		labelStr = styles.FocusedStyle.Render("> " + label + ":")
		inputStyle = styles.FocusedBorderStyle
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		labelStr,
		inputStyle.Width(cardWidth-10).Render(input),
		"",
	)
}

func (m *Model) renderButton() string {
	style := styles.ButtonInactiveStyle
	if m.focusedField == fieldSubmit {
		style = styles.ButtonActiveStyle
	}
	return style.Render(" " + m.mode.String() + " ")
}

// renderStatus shows, in order of precedence, an in-flight request, a local
// validation error or the error left behind by the last failed attempt.
func (m *Model) renderStatus() string {
	switch {
	case m.submitting:
		return styles.InfoTextStyle.Render("Contacting server...")
	case m.formError != "":
		return styles.ErrorTextStyle.Render(m.formError)
	}
	if s := m.state.Session(); s.Failed() {
		return styles.ErrorTextStyle.Render(s.Error)
	}
	return ""
}
