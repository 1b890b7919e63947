// Package signin provides the sign-in and sign-up screen shown while no
// user is authenticated.
package signin

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/app"
)

type formField int

const (
	fieldEmail formField = iota
	fieldPassword
	fieldSubmit
	fieldCount
)

// Mode selects between signing in and creating an account.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeSignUp
)

func (m Mode) String() string {
	if m == ModeSignUp {
		return "Create account"
	}
	return "Sign in"
}

type keyMap struct {
	Next       key.Binding
	Prev       key.Binding
	Submit     key.Binding
	ToggleMode key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		ToggleMode: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "sign in / sign up"),
		),
	}
}

// Model is the sign-in screen.
type Model struct {
	state         *app.State
	emailInput    textinput.Model
	passwordInput textinput.Model
	keys          keyMap
	formError     string
	width         int
	height        int
	focusedField  formField
	mode          Mode
	submitting    bool
}

// New creates the sign-in screen. The email field is prefilled with email.
func New(state *app.State, email string) *Model {
	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.com"
	emailInput.CharLimit = 254
	emailInput.Width = 40
	emailInput.SetValue(email)

	passwordInput := textinput.New()
	passwordInput.Placeholder = "Password"
	passwordInput.CharLimit = 128
	passwordInput.Width = 40
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.EchoCharacter = '•'

	m := &Model{
		state:         state,
		emailInput:    emailInput,
		passwordInput: passwordInput,
		keys:          defaultKeyMap(),
	}
	if email != "" {
		m.focusedField = fieldPassword
	}
	m.updateFocus()
	return m
}

// Init starts the cursor blink.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Capturing reports true: every printable key belongs to the form.
func (m *Model) Capturing() bool {
	return true
}

// Mode returns the current form mode.
func (m *Model) Mode() Mode {
	return m.mode
}

// Submitting reports whether a request is in flight.
func (m *Model) Submitting() bool {
	return m.submitting
}

// Update handles messages for the sign-in screen.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.AuthResultMsg:
		m.submitting = false
		m.passwordInput.SetValue("")
		if msg.Result.OK() && msg.SignUp {
			m.mode = ModeSignIn
		}
		m.focusedField = fieldPassword
		m.updateFocus()
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch m.focusedField {
	case fieldEmail:
		m.emailInput, cmd = m.emailInput.Update(msg)
	case fieldPassword:
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.ToggleMode):
		if m.mode == ModeSignIn {
			m.mode = ModeSignUp
		} else {
			m.mode = ModeSignIn
		}
		m.formError = ""
		return nil, true

	case key.Matches(msg, m.keys.Next):
		m.focusedField = (m.focusedField + 1) % fieldCount
		m.updateFocus()
		return textinput.Blink, true

	case key.Matches(msg, m.keys.Prev):
		m.focusedField = (m.focusedField - 1 + fieldCount) % fieldCount
		m.updateFocus()
		return textinput.Blink, true

	case key.Matches(msg, m.keys.Submit):
		if m.focusedField == fieldEmail {
			m.focusedField = fieldPassword
			m.updateFocus()
			return textinput.Blink, true
		}
		return m.submit(), true
	}
	return nil, false
}

func (m *Model) submit() tea.Cmd {
	if m.submitting {
		return nil
	}

	email := strings.TrimSpace(m.emailInput.Value())
	password := m.passwordInput.Value()
	switch {
	case email == "":
		m.formError = "Email is required"
		m.focusedField = fieldEmail
		m.updateFocus()
		return nil
	case password == "":
		m.formError = "Password is required"
		m.focusedField = fieldPassword
		m.updateFocus()
		return nil
	}

	m.formError = ""
	m.submitting = true

	var msg tea.Msg = app.SignInMsg{Email: email, Password: password}
	if m.mode == ModeSignUp {
		msg = app.SignUpMsg{Email: email, Password: password}
	}
	return func() tea.Msg { return msg }
}

func (m *Model) updateFocus() {
	m.emailInput.Blur()
	m.passwordInput.Blur()

	switch m.focusedField {
	case fieldEmail:
		m.emailInput.Focus()
	case fieldPassword:
		m.passwordInput.Focus()
	}
}

// SetSize sets the available size.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Next, m.keys.Submit, m.keys.ToggleMode}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Next, m.keys.Prev},
		{m.keys.Submit, m.keys.ToggleMode},
	}
}
