package info

import (
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/styles"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/version"
)

const recentRows = 8

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderSessionCard(),
		m.renderConfigCard(),
		m.renderRequestsCard(),
		m.renderAboutCard(),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Session, configuration and request log")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 100)
}

func (m *Model) card(title string, rows ...string) string {
	rows = append([]string{styles.CardTitleStyle.Render(title)}, rows...)
	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderSessionCard() string {
	s := m.state.Session()
	rows := []string{renderRow("Status", s.Status.String())}
	if s.IsAuthenticated() {
		rows = append(rows,
			renderRow("Email", s.Email),
			renderRow("User ID", s.UserID.String()),
		)
	}
	if s.Error != "" {
		rows = append(rows, renderRow("Last error", styles.ErrorTextStyle.Render(s.Error)))
	}
	return m.card("Session", rows...)
}

func (m *Model) renderConfigCard() string {
	cfg := m.currentConfig()
	if cfg == nil {
		return m.card("Configuration", styles.HelpStyle.Render("Configuration not loaded"))
	}

	timeout := "none"
	if cfg.RequestTimeout > 0 {
		timeout = cfg.RequestTimeout.String()
	}

	rows := []string{
		renderRow("API URL", valueOr(m.state.APIURL(), cfg.APIURL)),
		renderRow("Timeout", timeout),
		renderRow("Database", valueOr(cfg.DatabasePath, "disabled")),
		renderRow("Log file", valueOr(cfg.LogPath, "disabled")),
		renderRow("Log level", cfg.LogLevel),
		renderRow("Metrics", valueOr(cfg.MetricsAddr, "disabled")),
		renderRow("Notifications", strconv.FormatBool(cfg.Notifications)),
		renderRow("Env file", valueOr(cfg.EnvFile, "none")),
		"",
		styles.HelpStyle.Render("Press 'c' to copy the API URL"),
	}
	return m.card("Configuration", rows...)
}

func (m *Model) renderRequestsCard() string {
	stats := m.state.RequestStats()
	if stats == nil {
		return m.card("Requests", styles.HelpStyle.Render("No request log available"))
	}

	rows := []string{
		renderRow("Total", strconv.Itoa(stats.TotalRequests)),
		renderRow("Errors", strconv.Itoa(stats.ErrorCount)),
		renderRow("Routes", strconv.Itoa(stats.UniqueRoutes)),
		renderRow("Avg duration", fmt.Sprintf("%.0f ms", stats.AvgDurationMs)),
	}

	if stats.TotalRequests > 0 {
		ratio := float64(stats.TotalRequests-stats.ErrorCount) / float64(stats.TotalRequests)
		rows = append(rows, "", m.successBar.View(ratio, m.cardWidth()-8))
	}

	recent := m.state.RecentRequests()
	if len(recent) > 0 {
		values, labels := routeCounts(recent)
		rows = append(rows,
			"",
			renderRow("Latency", components.RenderSparkline(durations(recent), m.cardWidth()-30)),
			"",
			components.RenderBarChart(values, labels, m.cardWidth()-8),
			"",
		)
		for i, r := range recent {
			if i == recentRows {
				break
			}
			rows = append(rows, renderRequest(r))
		}
	}

	return m.card("Requests", rows...)
}

// durations returns request durations oldest first; recent is newest first.
func durations(recent []models.RequestLog) []float64 {
	out := make([]float64, len(recent))
	for i, r := range recent {
		out[len(recent)-1-i] = float64(r.DurationMs)
	}
	return out
}

// routeCounts tallies requests per route, busiest first.
func routeCounts(recent []models.RequestLog) ([]float64, []string) {
	counts := make(map[string]int)
	for _, r := range recent {
		counts[r.Method+" "+r.Route]++
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	values := make([]float64, len(labels))
	for i, label := range labels {
		values[i] = float64(counts[label])
	}
	return values, labels
}

func renderRequest(r models.RequestLog) string {
	code := "ERR"
	if r.StatusCode > 0 {
		code = strconv.Itoa(r.StatusCode)
	}
	status := styles.SuccessTextStyle.Render(code)
	if r.Error != "" || r.StatusCode >= 400 || r.StatusCode == 0 {
		status = styles.ErrorTextStyle.Render(code)
	}
	line := fmt.Sprintf("%s %s %-6s %s %s",
		styles.HelpStyle.Render(r.Timestamp.Local().Format("15:04:05")),
		status,
		r.Method,
		r.Route,
		styles.HelpStyle.Render(fmt.Sprintf("%dms", r.DurationMs)),
	)
	if r.Error != "" {
		line += " " + styles.ErrorTextStyle.Render(r.Error)
	}
	return line
}

func (m *Model) renderAboutCard() string {
	return m.card("About EasyRouter Dashboard",
		renderRow("Version", version.GetVersion()),
		renderRow("Build Date", version.GetDate()),
		renderRow("Git Commit", version.GetCommit()),
		renderRow("Go Version", runtime.Version()),
		renderRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	)
}

// renderRow renders a key-value row.
func renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(16).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
