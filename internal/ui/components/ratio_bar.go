package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/styles"
)

// RatioBar renders a labelled progress bar for a 0..1 ratio, such as the
// share of successful gateway requests.
type RatioBar struct {
	progress progress.Model
	label    string
}

// NewRatioBar creates a ratio bar with a red to green gradient.
func NewRatioBar(label string) RatioBar {
	return RatioBar{
		progress: progress.New(
			progress.WithScaledGradient("#ff6b6b", "#51cf66"),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
		label: label,
	}
}

// View renders the bar at the given ratio. Ratios outside 0..1 are clamped.
func (r RatioBar) View(ratio float64, width int) string {
	ratio = max(0, min(ratio, 1))

	labelWidth := len(r.label) + 1
	barWidth := width - labelWidth - 7
	if barWidth < 10 {
		barWidth = 10
	}
	r.progress.Width = barWidth

	percentStr := ratioStyle(ratio).
		Width(6).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", ratio*100))

	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		lipgloss.NewStyle().Foreground(styles.TextSecondary).Width(labelWidth).Render(r.label),
		r.progress.ViewAs(ratio),
		" ",
		percentStr,
	)
}

func ratioStyle(ratio float64) lipgloss.Style {
	switch {
	case ratio >= 0.9:
		return styles.SuccessTextStyle
	case ratio >= 0.5:
		return styles.WarningTextStyle
	default:
		return styles.ErrorTextStyle
	}
}
