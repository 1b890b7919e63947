// Package app implements the main Bubble Tea application with tab-based navigation.
package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/apikeys"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/catalog"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/credits"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabKeys is the ID for the API keys tab.
	TabKeys TabID = iota
	// TabModels is the ID for the model catalog tab.
	TabModels
	// TabCredits is the ID for the credits tab.
	TabCredits
	// TabInfo is the ID for the info tab.
	TabInfo
)

// String returns the string representation of the TabID.
func (t TabID) String() string {
	switch t {
	case TabKeys:
		return "API Keys"
	case TabModels:
		return "Models"
	case TabCredits:
		return "Credits"
	case TabInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding

	// FullHelp returns key bindings for the full help view.
	FullHelp() [][]key.Binding
}

// InputCapturer is implemented by tabs that own the keyboard while a text
// field is focused. Global shortcuts other than ctrl+c are suspended then.
type InputCapturer interface {
	Capturing() bool
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding
	Tab4    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
	SignOut key.Binding
	Escape  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	km := KeyMap{}
	km = setTabKeys(km)
	km = setActionKeys(km)
	return km
}

func setTabKeys(k KeyMap) KeyMap {
	k.Tab1 = key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "api keys"))
	k.Tab2 = key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "models"))
	k.Tab3 = key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "credits"))
	k.Tab4 = key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "info"))
	k.NextTab = key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab/→", "next tab"))
	k.PrevTab = key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab/←", "prev tab"))
	return k
}

func setActionKeys(k KeyMap) KeyMap {
	k.Refresh = key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh"))
	k.Help = key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help"))
	k.Quit = key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))
	k.SignOut = key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "sign out"))
	k.Escape = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	return k
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Refresh, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4},
		{k.NextTab, k.PrevTab},
		{k.Refresh, k.SignOut, k.Help, k.Quit},
	}
}

// Styles defines the application styles.
type Styles struct {
	// Tab bar styles
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	Identity    lipgloss.Style

	// Notification styles
	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	Content lipgloss.Style
	Toast   lipgloss.Style

	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	s := Styles{}
	s.TabBar = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(styles.Subtle)
	s.ActiveTab = lipgloss.NewStyle().Bold(true).Foreground(styles.Highlight).Padding(0, 2)
	s.InactiveTab = lipgloss.NewStyle().Foreground(styles.Subtle).Padding(0, 2)
	s.Identity = lipgloss.NewStyle().Foreground(styles.Subtle).Padding(0, 1)

	s.NotificationSuccess = lipgloss.NewStyle().Foreground(styles.Success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(styles.Error).Bold(true).Padding(0, 1)
	s.NotificationWarning = lipgloss.NewStyle().Foreground(styles.Warning).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(styles.Info).Padding(0, 1)

	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Toast = styles.ToastStyle

	s.Title = lipgloss.NewStyle().Bold(true).Foreground(styles.Highlight)
	s.Subtle = lipgloss.NewStyle().Foreground(styles.Subtle)
	s.Highlight = lipgloss.NewStyle().Foreground(styles.Highlight)

	return s
}

// Model is the main application model.
type Model struct {
	// Tab management
	activeTab TabID
	tabs      []Tab
	tabNames  []string
	signIn    Tab

	// Shared state
	state    *State
	services *services.Manager
	keymap   KeyMap
	styles   Styles

	spinner spinner.Model

	width  int
	height int

	showHelp bool
	ready    bool

	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model.
func NewModel(mgr *services.Manager) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Highlight)

	state := NewState()
	if mgr != nil {
		state.SetSession(mgr.Session())
		state.SetAPIURL(mgr.BaseURL())
	}

	return &Model{
		activeTab: TabKeys,
		tabNames:  []string{TabKeys.String(), TabModels.String(), TabCredits.String(), TabInfo.String()},
		tabs:      make([]Tab, 4), // set externally
		state:     state,
		services:  mgr,
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   s,
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// SetSignIn sets the screen shown while no user is signed in.
func (m *Model) SetSignIn(tab Tab) {
	m.signIn = tab
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetServices returns the service manager.
func (m *Model) GetServices() *services.Manager {
	return m.services
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// IsReady returns true if the model is ready (window size received).
func (m *Model) IsReady() bool {
	return m.ready
}

func (m *Model) authenticated() bool {
	return m.state.Session().IsAuthenticated()
}

// activeView is the sign-in screen until a user is signed in.
func (m *Model) activeView() Tab {
	if !m.authenticated() {
		return m.signIn
	}
	if int(m.activeTab) < len(m.tabs) {
		return m.tabs[m.activeTab]
	}
	return nil
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.services != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.services))
	}

	if m.signIn != nil {
		cmds = append(cmds, m.signIn.Init())
	}
	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg, spinner.TickMsg:
		if cmd := m.handleTeaMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		cmd, handled := m.handleKeyMsg(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		if handled {
			return m, tea.Batch(cmds...)
		}

	case AuthResultMsg:
		cmds = append(cmds, m.handleAuthResult(msg)...)
		// The sign-in screen always hears how its attempt ended, even though
		// a successful sign-in already moved the view to the tabs.
		if m.signIn != nil {
			var cmd tea.Cmd
			m.signIn, cmd = m.signIn.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	default:
		if appCmds := m.handleAppMsg(msg); len(appCmds) > 0 {
			cmds = append(cmds, appCmds...)
		}
	}

	if cmd := m.updateActiveView(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleTeaMsg(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEvent(msg.Event))
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}
	case SignInMsg, SignUpMsg, SignOutMsg:
		cmds = append(cmds, m.handleSessionMsg(msg)...)
	case KeysLoadedMsg, CreateKeyMsg, KeyCreatedMsg, DeleteKeyMsg, KeyDeletedMsg,
		ToggleKeyMsg, KeyUpdatedMsg, ClearSecretMsg:
		cmds = append(cmds, m.handleKeysMsg(msg)...)
	case CatalogLoadedMsg, LoadOfferingsMsg, OfferingsLoadedMsg:
		cmds = append(cmds, m.handleCatalogMsg(msg)...)
	case OnrampMsg, OnrampResultMsg:
		cmds = append(cmds, m.handleCreditsMsg(msg)...)
	case RequestStatsLoadedMsg:
		m.stopLoading(ResourceRequests)
		if msg.Err == nil {
			m.state.SetRequestStats(msg.Stats, msg.Recent)
		}
	case CopyToClipboardMsg:
		cmds = append(cmds, copyToClipboardCmd(msg))
	case ClipboardResultMsg:
		cmds = append(cmds, m.handleClipboardResult(msg)...)
	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case StartLoadingMsg:
		m.state.SetLoading(msg.Resource, true)
		m.state.SetLoadingNotification("Refreshing...")
	case StopLoadingMsg:
		m.stopLoading(msg.Resource)
	case ErrorMsg:
		if msg.Error != nil && !isStale(msg.Error) {
			cmds = append(cmds, notifyErrorCmd(client.Message(msg.Error)))
		}
	case RefreshMsg:
		cmds = append(cmds, m.handleRefresh(msg.Resource)...)
	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.updateTabSizes()
	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return cmds
}

func (m *Model) handleSessionMsg(msg tea.Msg) []tea.Cmd {
	if m.services == nil {
		return nil
	}
	switch msg := msg.(type) {
	case SignInMsg:
		m.state.SetLoading(ResourceSession, true)
		m.state.SetLoadingNotification("Signing in...")
		return []tea.Cmd{signInCmd(m.services, msg.Email, msg.Password)}
	case SignUpMsg:
		m.state.SetLoading(ResourceSession, true)
		m.state.SetLoadingNotification("Creating account...")
		return []tea.Cmd{signUpCmd(m.services, msg.Email, msg.Password)}
	case SignOutMsg:
		email := m.state.Session().Email
		m.services.SignOut()
		m.state.SetSession(m.services.Session())
		m.state.ResetResources()
		m.activeTab = TabKeys
		m.showHelp = false
		return []tea.Cmd{notifyInfoCmd(fmt.Sprintf("Signed out of %s", email))}
	}
	return nil
}

func (m *Model) handleAuthResult(msg AuthResultMsg) []tea.Cmd {
	m.stopLoading(ResourceSession)
	if m.services != nil {
		m.state.SetSession(m.services.Session())
	}

	res := msg.Result
	if !res.OK() {
		return []tea.Cmd{notifyErrorCmd(res.Message())}
	}

	if msg.SignUp {
		return []tea.Cmd{notifySuccessCmd(fmt.Sprintf("Account created for %s. Sign in to continue.", msg.Email))}
	}

	m.state.ResetResources()
	m.activeTab = TabKeys
	m.updateTabSizes()

	cmds := []tea.Cmd{notifySuccessCmd(fmt.Sprintf("Signed in as %s", msg.Email))}
	if m.services != nil {
		m.syncAll()
		m.startLoading(ResourceKeys, ResourceCatalog, ResourceCredits, ResourceRequests)
		cmds = append(cmds, loadResourcesCmd(m.services))
	}
	return cmds
}

func (m *Model) handleKeysMsg(msg tea.Msg) []tea.Cmd {
	if m.services == nil {
		return nil
	}
	switch msg := msg.(type) {
	case KeysLoadedMsg:
		// List failures are reported through the keys ErrorEvent.
		m.stopLoading(ResourceKeys)
		m.syncKeys()
	case CreateKeyMsg:
		return []tea.Cmd{createKeyCmd(m.services, msg.Name)}
	case KeyCreatedMsg:
		if msg.Err != nil {
			return m.failure("Failed to create API key", msg.Err)
		}
		m.syncKeys()
		return []tea.Cmd{notifySuccessCmd(fmt.Sprintf("Created API key %q. Copy the secret now, it is shown only once.", msg.Key.Name))}
	case DeleteKeyMsg:
		return []tea.Cmd{deleteKeyCmd(m.services, msg.ID, msg.Name)}
	case KeyDeletedMsg:
		if msg.Err != nil {
			return m.failure("Failed to delete API key", msg.Err)
		}
		m.syncKeys()
		return []tea.Cmd{notifySuccessCmd(fmt.Sprintf("Deleted API key %q", msg.Name))}
	case ToggleKeyMsg:
		return []tea.Cmd{toggleKeyCmd(m.services, msg.ID)}
	case KeyUpdatedMsg:
		if msg.Err != nil {
			return m.failure("Failed to update API key", msg.Err)
		}
		m.syncKeys()
		return []tea.Cmd{notifySuccessCmd(fmt.Sprintf("API key %q is now %s", msg.Key.Name, msg.Key.StatusLabel()))}
	case ClearSecretMsg:
		m.services.Keys().ClearSecret(msg.ID)
		m.syncKeys()
	}
	return nil
}

func (m *Model) handleCatalogMsg(msg tea.Msg) []tea.Cmd {
	if m.services == nil {
		return nil
	}
	switch msg := msg.(type) {
	case CatalogLoadedMsg:
		m.stopLoading(ResourceCatalog)
		m.syncCatalog()
	case LoadOfferingsMsg:
		if cached, ok := m.services.Catalog().CachedOfferings(msg.ModelID); ok {
			m.state.SetOfferings(msg.ModelID, cached)
			return nil
		}
		return []tea.Cmd{loadOfferingsCmd(m.services, msg.ModelID)}
	case OfferingsLoadedMsg:
		if msg.Err != nil {
			return m.failure("Failed to load providers", msg.Err)
		}
		m.state.SetOfferings(msg.ModelID, msg.Offerings)
	}
	return nil
}

func (m *Model) handleCreditsMsg(msg tea.Msg) []tea.Cmd {
	if m.services == nil {
		return nil
	}
	switch msg := msg.(type) {
	case OnrampMsg:
		m.state.SetLoading(ResourceCredits, true)
		return []tea.Cmd{onrampCmd(m.services)}
	case OnrampResultMsg:
		m.stopLoading(ResourceCredits)
		if msg.Err != nil {
			return m.failure("Onramp failed", msg.Err)
		}
		m.syncCredits()
		return []tea.Cmd{notifySuccessCmd(fmt.Sprintf("Added %d credits", msg.Entry.Amount))}
	}
	return nil
}

func (m *Model) handleClipboardResult(msg ClipboardResultMsg) []tea.Cmd {
	if msg.Error != nil {
		return []tea.Cmd{notifyErrorCmd(fmt.Sprintf("Clipboard unavailable: %v", msg.Error))}
	}
	if !msg.KeyID.IsZero() && m.services != nil {
		m.services.Keys().ClearSecret(msg.KeyID)
		m.syncKeys()
	}
	return []tea.Cmd{notifySuccessCmd(fmt.Sprintf("Copied %s to clipboard", msg.Label))}
}

func (m *Model) handleRefresh(resource string) []tea.Cmd {
	if m.services == nil || !m.authenticated() {
		return nil
	}

	switch resource {
	case ResourceKeys:
		m.startLoading(ResourceKeys)
		return []tea.Cmd{loadKeysCmd(m.services)}
	case ResourceCatalog:
		m.startLoading(ResourceCatalog)
		return []tea.Cmd{loadCatalogCmd(m.services)}
	case ResourceCredits:
		m.startLoading(ResourceCredits)
		return []tea.Cmd{loadCreditsCmd(m.services)}
	case ResourceRequests:
		m.startLoading(ResourceRequests)
		return []tea.Cmd{loadRequestStatsCmd(m.services)}
	default:
		m.startLoading(ResourceKeys, ResourceCatalog, ResourceCredits, ResourceRequests)
		return []tea.Cmd{loadResourcesCmd(m.services)}
	}
}

// failure turns an operation error into a toast. Responses that arrived
// after a sign-out or a backend switch are dropped silently.
func (m *Model) failure(prefix string, err error) []tea.Cmd {
	if isStale(err) {
		return nil
	}
	return []tea.Cmd{notifyErrorCmd(fmt.Sprintf("%s: %s", prefix, client.Message(err)))}
}

func isStale(err error) bool {
	return errors.Is(err, apikeys.ErrClosed) ||
		errors.Is(err, catalog.ErrClosed) ||
		errors.Is(err, credits.ErrClosed)
}

func (m *Model) startLoading(resources ...string) {
	for _, r := range resources {
		m.state.SetLoading(r, true)
	}
	m.state.SetLoadingNotification("Loading...")
}

func (m *Model) stopLoading(resource string) {
	m.state.SetLoading(resource, false)
	if !m.state.AnyLoading() {
		m.state.ClearLoadingNotification()
	}
}

func (m *Model) syncKeys() {
	m.state.SetKeys(m.services.Keys().Snapshot())
}

func (m *Model) syncCatalog() {
	m.state.SetCatalog(m.services.Catalog().Snapshot())
}

func (m *Model) syncCredits() {
	m.state.SetCredits(m.services.Credits().Snapshot())
}

func (m *Model) syncAll() {
	m.syncKeys()
	m.syncCatalog()
	m.syncCredits()
}

// handleServiceEvent refreshes state from the current store generation
// rather than from the event payload, so events from a generation that
// was replaced in the meantime cannot resurrect stale data.
func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	if m.services == nil {
		return nil
	}

	switch e := event.(type) {
	case services.SessionChangedEvent:
		m.state.SetSession(e.Session)
		if !e.Session.IsAuthenticated() {
			m.state.ResetResources()
		}

	case services.KeysChangedEvent:
		m.syncKeys()

	case services.CatalogChangedEvent:
		m.syncCatalog()

	case services.CreditsChangedEvent:
		m.syncCredits()
		if e.Type == credits.EventOnramped {
			return loadRequestStatsCmd(m.services)
		}

	case services.ErrorEvent:
		if e.Error == nil || isStale(e.Error) {
			return nil
		}
		return notifyErrorCmd(fmt.Sprintf("[%s] %s", e.Service, client.Message(e.Error)))

	case services.ConfigReloadedEvent:
		m.state.SetAPIURL(m.services.BaseURL())
		if e.Reconnected {
			m.state.SetSession(m.services.Session())
			m.state.ResetResources()
			return notifyWarningCmd(fmt.Sprintf("Backend changed to %s. Sign in again.", m.services.BaseURL()))
		}
		return notifyInfoCmd("Configuration reloaded")
	}

	return nil
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.updateTabSizes()
}

func (m *Model) updateActiveView(msg tea.Msg) tea.Cmd {
	view := m.activeView()
	if view == nil {
		return nil
	}
	updated, cmd := view.Update(msg)
	if !m.authenticated() {
		m.signIn = updated
	} else {
		m.tabs[m.activeTab] = updated
	}
	return cmd
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-5)

	if m.signIn != nil {
		m.signIn.SetSize(m.width, contentHeight)
	}
	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

func (m *Model) capturing() bool {
	if c, ok := m.activeView().(InputCapturer); ok {
		return c.Capturing()
	}
	return false
}

// handleKeyMsg handles global keys. handled is false when the key belongs
// to the active view.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.Type == tea.KeyCtrlC {
		return tea.Quit, true
	}
	if m.capturing() {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return nil, true

	case key.Matches(msg, m.keymap.Escape):
		if m.showHelp {
			m.showHelp = false
			return nil, true
		}
		return nil, false
	}

	if !m.authenticated() {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keymap.Tab1):
		m.switchTab(TabKeys)
	case key.Matches(msg, m.keymap.Tab2):
		m.switchTab(TabModels)
	case key.Matches(msg, m.keymap.Tab3):
		m.switchTab(TabCredits)
	case key.Matches(msg, m.keymap.Tab4):
		m.switchTab(TabInfo)
	case key.Matches(msg, m.keymap.NextTab):
		m.switchTab(TabID((int(m.activeTab) + 1) % len(m.tabs)))
	case key.Matches(msg, m.keymap.PrevTab):
		m.switchTab(TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs)))
	case key.Matches(msg, m.keymap.Refresh):
		return sendMsg(RefreshMsg{Resource: m.refreshTarget()}), true
	case key.Matches(msg, m.keymap.SignOut):
		return sendMsg(SignOutMsg{}), true
	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) switchTab(tab TabID) {
	if m.showHelp {
		return
	}
	m.activeTab = tab
	m.updateTabSizes()
}

func (m *Model) refreshTarget() string {
	switch m.activeTab {
	case TabKeys:
		return ResourceKeys
	case TabModels:
		return ResourceCatalog
	case TabCredits:
		return ResourceCredits
	case TabInfo:
		return ResourceRequests
	default:
		return "all"
	}
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View())))
		return b.String()
	}

	if view := m.activeView(); view != nil {
		b.WriteString(view.View())
	} else {
		b.WriteString(m.renderPlaceholder())
	}

	mainView := b.String()
	if lines := strings.Count(mainView, "\n") + 1; lines < m.height {
		mainView += strings.Repeat("\n", m.height-lines)
	}

	if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if notifications := m.renderNotifications(); len(notifications) > 0 {
		return m.overlayToasts(mainView, notifications)
	}

	return mainView
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")

	overlayWidth := lipgloss.Width(overlay)
	y := max((m.height-len(overlayLines))/2, 0)
	x := max((m.width-overlayWidth)/2, 0)

	for i, overlayLine := range overlayLines {
		mainY := y + i
		if mainY >= len(mainLines) {
			break
		}

		mainLine := mainLines[mainY]
		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")
		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}

		mainLines[mainY] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderNavbar() string {
	session := m.state.Session()
	if !session.IsAuthenticated() {
		title := m.styles.ActiveTab.Render("EasyRouter")
		return m.styles.TabBar.Width(m.width).Render(title)
	}

	var tabs []string
	for i, name := range m.tabNames {
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
		}
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	identity := m.styles.Identity.Render(session.Email)
	gap := max(m.width-lipgloss.Width(tabBar)-lipgloss.Width(identity)-2, 1)
	tabBar = lipgloss.JoinHorizontal(lipgloss.Top, tabBar, strings.Repeat(" ", gap), identity)

	return m.styles.TabBar.Width(m.width).Render(tabBar)
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	toasts := make([]string, 0, len(notifications))
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
			prefix = "[OK]"
		case NotificationError:
			style = m.styles.NotificationError
			prefix = "[ERR]"
		case NotificationWarning:
			style = m.styles.NotificationWarning
			prefix = "[WARN]"
		case NotificationInfo:
			style = m.styles.NotificationInfo
			prefix = "[INFO]"
		case NotificationLoading:
			style = m.styles.NotificationInfo
			prefix = m.spinner.View()
		}

		content := style.Render(fmt.Sprintf("%s %s", prefix, n.Message))
		toasts = append(toasts, m.styles.Toast.Render(content))
	}

	return toasts
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := strings.Split(mainView, "\n")

	startX := max(m.width-lipgloss.Width(toastStack)-2, 0)
	startY := 2

	for i, toastLine := range toastLines {
		lineIdx := startY + i
		if lineIdx >= len(mainLines) {
			break
		}

		mainLine := mainLines[lineIdx]
		if w := lipgloss.Width(mainLine); w < startX {
			mainLines[lineIdx] = mainLine + strings.Repeat(" ", startX-w) + toastLine
		} else {
			mainLines[lineIdx] = ansi.Truncate(mainLine, startX, "") + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	var lines []string

	lines = append(lines, m.styles.Title.Render("Keyboard Shortcuts"), "")

	lines = append(lines, m.styles.Highlight.Render("Navigation"))
	lines = append(lines, "  1-4        Switch tabs")
	lines = append(lines, "  Tab        Next tab")
	lines = append(lines, "  Shift+Tab  Previous tab")
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Actions"))
	lines = append(lines, "  r          Refresh current tab")
	lines = append(lines, "  X          Sign out")
	lines = append(lines, "  ?          Toggle help")
	lines = append(lines, "  q/Ctrl+C   Quit")
	lines = append(lines, "")

	if view := m.activeView(); view != nil {
		if tabHelp := view.ShortHelp(); len(tabHelp) > 0 {
			title := "Sign In"
			if m.authenticated() {
				title = m.tabNames[m.activeTab]
			}
			lines = append(lines, m.styles.Highlight.Render(title))
			for _, binding := range tabHelp {
				lines = append(lines, fmt.Sprintf("  %-10s %s", binding.Help().Key, binding.Help().Desc))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPlaceholder() string {
	name := "Sign In"
	if m.authenticated() {
		name = m.tabNames[m.activeTab]
	}
	return m.styles.Content.Render(fmt.Sprintf("%s\n\n%s", name, m.styles.Subtle.Render("Nothing to show yet.")))
}
