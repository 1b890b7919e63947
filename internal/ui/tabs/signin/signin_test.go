package signin

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/app"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/session"
)

func typeText(m *Model, text string) {
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func press(m *Model, k tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	return cmd
}

func TestNew_PrefillsEmail(t *testing.T) {
	m := New(app.NewState(), "ada@example.com")

	assert.Equal(t, "ada@example.com", m.emailInput.Value())
	assert.Equal(t, fieldPassword, m.focusedField)
	assert.True(t, m.passwordInput.Focused())
	assert.True(t, m.Capturing())
	assert.Equal(t, ModeSignIn, m.Mode())
}

func TestSubmit_SignIn(t *testing.T) {
	m := New(app.NewState(), "")
	typeText(m, "ada@example.com")
	press(m, tea.KeyEnter)
	typeText(m, "hunter2")

	cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Equal(t, app.SignInMsg{Email: "ada@example.com", Password: "hunter2"}, cmd())
	assert.True(t, m.Submitting())

	assert.Nil(t, press(m, tea.KeyEnter), "a second submit while in flight is ignored")
}

func TestSubmit_SignUp(t *testing.T) {
	m := New(app.NewState(), "ada@example.com")
	press(m, tea.KeyCtrlT)
	require.Equal(t, ModeSignUp, m.Mode())
	typeText(m, "pw")

	cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Equal(t, app.SignUpMsg{Email: "ada@example.com", Password: "pw"}, cmd())
}

func TestSubmit_RequiresFields(t *testing.T) {
	m := New(app.NewState(), "")
	m.focusedField = fieldSubmit
	m.updateFocus()

	assert.Nil(t, press(m, tea.KeyEnter))
	assert.Equal(t, "Email is required", m.formError)
	assert.Equal(t, fieldEmail, m.focusedField)

	typeText(m, "ada@example.com")
	m.focusedField = fieldSubmit
	assert.Nil(t, press(m, tea.KeyEnter))
	assert.Equal(t, "Password is required", m.formError)
	assert.False(t, m.Submitting())
}

func TestFocusCycle(t *testing.T) {
	m := New(app.NewState(), "")
	require.Equal(t, fieldEmail, m.focusedField)

	press(m, tea.KeyTab)
	assert.Equal(t, fieldPassword, m.focusedField)
	press(m, tea.KeyTab)
	assert.Equal(t, fieldSubmit, m.focusedField)
	press(m, tea.KeyTab)
	assert.Equal(t, fieldEmail, m.focusedField)
	press(m, tea.KeyShiftTab)
	assert.Equal(t, fieldSubmit, m.focusedField)
}

func TestAuthResult_ClearsPassword(t *testing.T) {
	m := New(app.NewState(), "ada@example.com")
	typeText(m, "wrong")
	press(m, tea.KeyEnter)
	require.True(t, m.Submitting())

	failure := &client.Error{Kind: client.KindAuth, Message: "Invalid credentials"}
	m.Update(app.AuthResultMsg{Email: "ada@example.com", Result: session.Result{Failure: failure}})

	assert.False(t, m.Submitting())
	assert.Empty(t, m.passwordInput.Value())
	assert.Equal(t, "ada@example.com", m.emailInput.Value())
}

func TestAuthResult_SignUpSwitchesToSignIn(t *testing.T) {
	m := New(app.NewState(), "ada@example.com")
	press(m, tea.KeyCtrlT)

	m.Update(app.AuthResultMsg{
		Email:  "ada@example.com",
		Result: session.Result{Identity: &models.Identity{ID: "1", Email: "ada@example.com"}},
		SignUp: true,
	})

	assert.Equal(t, ModeSignIn, m.Mode())
}

func TestView(t *testing.T) {
	state := app.NewState()
	state.SetAPIURL("http://router.test")
	state.SetSession(models.Session{Status: models.SessionAnonymous, Error: "Invalid credentials"})

	m := New(state, "")
	m.SetSize(100, 30)

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "EasyRouter")
	assert.Contains(t, view, "Sign in to http://router.test")
	assert.Contains(t, view, "Invalid credentials")

	press(m, tea.KeyCtrlT)
	assert.Contains(t, ansi.Strip(m.View()), "Create account")
}

func TestHelp(t *testing.T) {
	m := New(app.NewState(), "")
	assert.Len(t, m.ShortHelp(), 3)
	assert.Len(t, m.FullHelp(), 2)
}
