package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/styles"
)

// ResourceSpinner reports fetch progress for one backend collection. What it
// shows is derived from the collection's LoadState, never tracked on its own.
type ResourceSpinner struct {
	spinner  spinner.Model
	resource string
	style    lipgloss.Style
}

// NewResourceSpinner creates a spinner for a collection such as "API keys".
func NewResourceSpinner(resource string) ResourceSpinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return ResourceSpinner{
		spinner:  s,
		resource: resource,
		style:    lipgloss.NewStyle().Foreground(styles.TextSecondary),
	}
}

// Init starts the animation.
func (r ResourceSpinner) Init() tea.Cmd {
	return r.spinner.Tick
}

// Update advances the animation on its own ticks and ignores everything else.
func (r ResourceSpinner) Update(msg tea.Msg) (ResourceSpinner, tea.Cmd) {
	tick, ok := msg.(spinner.TickMsg)
	if !ok {
		return r, nil
	}
	var cmd tea.Cmd
	r.spinner, cmd = r.spinner.Update(tick)
	return r, cmd
}

// Resource returns the collection name.
func (r ResourceSpinner) Resource() string {
	return r.resource
}

// FirstLoad reports whether state is a fetch with nothing to show yet.
func FirstLoad(state models.LoadState) bool {
	return state.Loading && !state.Loaded
}

// Status returns "Loading <resource>..." before the first result and
// "Refreshing <resource>..." when a fetch runs over visible data. It is empty
// when nothing is in flight.
func (r ResourceSpinner) Status(state models.LoadState) string {
	switch {
	case FirstLoad(state):
		return r.Pending("Loading " + r.resource + "...")
	case state.Loading:
		return r.Pending("Refreshing " + r.resource + "...")
	default:
		return ""
	}
}

// Pending renders the spinner next to an arbitrary label, for nested fetches
// that have no LoadState of their own.
func (r ResourceSpinner) Pending(label string) string {
	return r.spinner.View() + " " + r.style.Render(label)
}

// RenderCentered fills width x height with the status for state.
func (r ResourceSpinner) RenderCentered(state models.LoadState, width, height int) string {
	return styles.CenterBoth(r.Status(state), width, height)
}
