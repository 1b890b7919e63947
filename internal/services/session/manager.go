// Package session owns the authentication state of the dashboard.
//
// Manager is the only writer of that state. Every operation returns a Result
// instead of an error so views can render one failure path.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/logger"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
)

// Transport is the subset of the HTTP client the session needs.
type Transport interface {
	Do(ctx context.Context, req client.Request, out any) error
	ExpireCredentials() error
}

// Result is the outcome of a sign-up or sign-in.
type Result struct {
	Identity *models.Identity
	Failure  *client.Error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Message returns the failure message, or "" on success.
func (r Result) Message() string {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Message
}

// EventType defines the type of session event.
type EventType int

const (
	// EventChanged is sent after every state transition.
	EventChanged EventType = iota
	// EventSignedIn is sent when a sign-in succeeds.
	EventSignedIn
	// EventSignedOut is sent after a local sign-out.
	EventSignedOut
)

// Event carries the session snapshot taken right after the transition.
type Event struct {
	Session models.Session
	Type    EventType
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Manager holds the current session.
type Manager struct {
	transport Transport
	validate  *validator.Validate
	eventChan chan Event

	mu    sync.RWMutex
	state models.Session
}

// New creates a manager in the Anonymous state. Sessions are not restored
// from a previous run.
func New(transport Transport) *Manager {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	return &Manager{
		transport: transport,
		validate:  v,
		eventChan: make(chan Event, 32),
	}
}

// Events returns the event channel for subscribing to session changes.
func (m *Manager) Events() <-chan Event {
	return m.eventChan
}

// Current returns a snapshot of the session.
func (m *Manager) Current() models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	return m.Current().IsAuthenticated()
}

// SignUp creates an account. It never changes the session status: a new
// account still has to sign in.
func (m *Manager) SignUp(ctx context.Context, email, password string) Result {
	req := signUpRequest{Email: strings.TrimSpace(email), Password: password}
	if err := m.validate.Struct(req); err != nil {
		return Result{Failure: client.Validation("signup", validationMessage(err))}
	}

	var ident models.Identity
	err := m.transport.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/auth/signup",
		Body:   req,
	}, &ident)
	if err != nil {
		f := failure("signup", err, "Sign up failed")
		logger.Info("sign up failed", "kind", f.Kind.String(), "error", f.Message)
		return Result{Failure: f}
	}

	if ident.Email == "" {
		ident.Email = req.Email
	}
	logger.Info("account created", "user_id", ident.ID.String())
	return Result{Identity: &ident}
}

// SignIn authenticates and records the returned user id. Concurrent calls are
// independent; the state reflects whichever response arrives last, except
// that a failure never clears an established identity.
func (m *Manager) SignIn(ctx context.Context, email, password string) Result {
	req := signInRequest{Email: strings.TrimSpace(email), Password: password}
	if err := m.validate.Struct(req); err != nil {
		f := client.Validation("signin", validationMessage(err))
		m.fail(f)
		return Result{Failure: f}
	}

	m.begin()

	var ident models.Identity
	err := m.transport.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/auth/signin",
		Body:   req,
	}, &ident)
	if err == nil && ident.ID.IsZero() {
		err = &client.Error{
			Op:      "signin",
			Kind:    client.KindDecode,
			Message: "sign in response did not include a user id",
		}
	}
	if err != nil {
		f := failure("signin", err, "Sign in failed")
		m.fail(f)
		logger.Info("sign in failed", "kind", f.Kind.String(), "error", f.Message)
		return Result{Failure: f}
	}

	if ident.Email == "" {
		ident.Email = req.Email
	}

	m.mu.Lock()
	m.state = models.Session{
		UserID: ident.ID,
		Email:  ident.Email,
		Status: models.SessionAuthenticated,
	}
	snapshot := m.state
	m.mu.Unlock()

	logger.Info("signed in", "user_id", ident.ID.String())
	m.sendEvent(Event{Type: EventChanged, Session: snapshot})
	m.sendEvent(Event{Type: EventSignedIn, Session: snapshot})
	return Result{Identity: &ident}
}

// SignOut clears the session and expires the credential cookie. It is local
// only and returns immediately.
func (m *Manager) SignOut() {
	m.mu.Lock()
	m.state = models.Session{}
	snapshot := m.state
	m.mu.Unlock()

	if err := m.transport.ExpireCredentials(); err != nil {
		logger.Error("failed to expire credentials", "error", err)
	}

	logger.Info("signed out")
	m.sendEvent(Event{Type: EventChanged, Session: snapshot})
	m.sendEvent(Event{Type: EventSignedOut, Session: snapshot})
}

// ClearError dismisses the last failure message.
func (m *Manager) ClearError() {
	m.mu.Lock()
	if m.state.Error == "" {
		m.mu.Unlock()
		return
	}
	m.state.Error = ""
	snapshot := m.state
	m.mu.Unlock()

	m.sendEvent(Event{Type: EventChanged, Session: snapshot})
}

func (m *Manager) begin() {
	m.mu.Lock()
	if m.state.Status != models.SessionAuthenticated {
		m.state.Status = models.SessionAuthenticating
	}
	m.state.Error = ""
	snapshot := m.state
	m.mu.Unlock()

	m.sendEvent(Event{Type: EventChanged, Session: snapshot})
}

func (m *Manager) fail(f *client.Error) {
	m.mu.Lock()
	m.state.Error = f.Message
	if m.state.UserID.IsZero() {
		m.state.Status = models.SessionAnonymous
	} else {
		m.state.Status = models.SessionAuthenticated
	}
	snapshot := m.state
	m.mu.Unlock()

	m.sendEvent(Event{Type: EventChanged, Session: snapshot})
}

// sendEvent sends an event, dropping the oldest one when the channel is full.
func (m *Manager) sendEvent(event Event) {
	select {
	case m.eventChan <- event:
	default:
		select {
		case <-m.eventChan:
		default:
		}
		select {
		case m.eventChan <- event:
		default:
		}
	}
}

func failure(op string, err error, fallback string) *client.Error {
	f := client.Normalize(op, err)
	if f.Message == "" {
		f.Message = fallback
	}
	return f
}

// validationMessage turns the first validator failure into a sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "email must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
