// Package services wires the transport, the session and the resource stores
// together and fans their changes out to the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/config"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/db"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/logger"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/apikeys"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/catalog"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/credits"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/session"
)

// requestLogRetention is how many request log rows survive a restart.
const requestLogRetention = 10000

type (
	// SessionChangedEvent is emitted after every session transition.
	SessionChangedEvent struct {
		Session models.Session
	}

	// KeysChangedEvent is emitted when the API key cache changes.
	KeysChangedEvent struct {
		Snapshot apikeys.Snapshot
		KeyID    models.ID
		Type     apikeys.EventType
	}

	// CatalogChangedEvent is emitted when the catalog or an offering list changes.
	CatalogChangedEvent struct {
		Snapshot catalog.Snapshot
		ModelID  models.ID
		Type     catalog.EventType
	}

	// CreditsChangedEvent is emitted when the balance or ledger changes.
	CreditsChangedEvent struct {
		Snapshot credits.Snapshot
		Entry    models.LedgerEntry
		Type     credits.EventType
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Error   error
		Service string
	}

	// ConfigReloadedEvent is emitted after the .env file changed. Reconnected is
	// true when the backend changed and the session was reset.
	ConfigReloadedEvent struct {
		Config      *config.Config
		Reconnected bool
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (SessionChangedEvent) isServiceEvent() {}
func (KeysChangedEvent) isServiceEvent()    {}
func (CatalogChangedEvent) isServiceEvent() {}
func (CreditsChangedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()          {}
func (ConfigReloadedEvent) isServiceEvent() {}

// connection is one backend: a transport and the session riding on it.
type connection struct {
	client  *client.Client
	session *session.Manager
	stop    chan struct{}
}

// stores is one generation of caches, bound to a single user.
type stores struct {
	keys    *apikeys.Store
	catalog *catalog.Store
	credits *credits.Store
}

func (s *stores) close() {
	_ = s.keys.Close()
	_ = s.catalog.Close()
	_ = s.credits.Close()
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier replaces the desktop notification function.
func WithNotifier(fn func(title, message string) error) Option {
	return func(m *Manager) {
		m.notify = fn
	}
}

// Manager orchestrates services and event routing.
type Manager struct {
	database *db.DB
	notify   func(title, message string) error

	mu          sync.RWMutex
	cfg         *config.Config
	conn        *connection
	stores      *stores
	watcher     *config.Watcher
	subscribers []chan<- ServiceEvent
	closed      bool
}

// NewManager opens the database and connects to the configured backend with
// an anonymous session.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg: cfg,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
	for _, opt := range opts {
		opt(m)
	}

	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	m.database = database

	if n, err := database.PruneRequestLog(context.Background(), requestLogRetention); err != nil {
		logger.Warn("failed to prune request log", "error", err)
	} else if n > 0 {
		logger.Debug("pruned request log", "rows", n)
		if err := database.Vacuum(); err != nil {
			logger.Warn("failed to vacuum database", "error", err)
		}
	}

	conn, err := m.connect(cfg)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	m.conn = conn
	m.stores = m.newStores(conn, "")

	return m, nil
}

func (m *Manager) connect(cfg *config.Config) (*connection, error) {
	c, err := client.New(cfg.APIURL, client.Options{
		Timeout:  cfg.RequestTimeout,
		Observer: m.recordCall,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	conn := &connection{
		client:  c,
		session: session.New(c),
		stop:    make(chan struct{}),
	}
	go m.routeSessionEvents(conn)
	return conn, nil
}

// routeSessionEvents forwards session transitions until the connection is
// replaced or the manager closes.
func (m *Manager) routeSessionEvents(conn *connection) {
	for {
		select {
		case event := <-conn.session.Events():
			if event.Type == session.EventChanged {
				m.broadcast(SessionChangedEvent{Session: event.Session})
			}
		case <-conn.stop:
			return
		}
	}
}

func (m *Manager) newStores(conn *connection, userID string) *stores {
	s := &stores{}

	s.keys = apikeys.New(conn.client, apikeys.WithListener(func(ev apikeys.Event) {
		snap := s.keys.Snapshot()
		m.broadcast(KeysChangedEvent{Snapshot: snap, KeyID: ev.KeyID, Type: ev.Type})
		if ev.Type == apikeys.EventListFailed {
			m.broadcast(ErrorEvent{Service: "keys", Error: snap.State.Err})
		}
	}))

	s.catalog = catalog.New(conn.client, catalog.WithListener(func(ev catalog.Event) {
		snap := s.catalog.Snapshot()
		m.broadcast(CatalogChangedEvent{Snapshot: snap, ModelID: ev.ModelID, Type: ev.Type})
		if ev.Type == catalog.EventListFailed {
			m.broadcast(ErrorEvent{Service: "catalog", Error: snap.State.Err})
		}
	}))

	creditOpts := []credits.Option{credits.WithListener(func(ev credits.Event) {
		snap := s.credits.Snapshot()
		m.broadcast(CreditsChangedEvent{Snapshot: snap, Entry: ev.Entry, Type: ev.Type})
		switch ev.Type {
		case credits.EventOnramped:
			m.notifyOnramp(ev.Entry, ev.Balance)
		case credits.EventLoadFailed:
			m.broadcast(ErrorEvent{Service: "credits", Error: snap.State.Err})
		}
	})}
	if userID != "" && m.database != nil {
		creditOpts = append(creditOpts, credits.WithRepository(m.database, userID))
	}
	s.credits = credits.New(conn.client, creditOpts...)

	return s
}

func (m *Manager) notifyOnramp(entry models.LedgerEntry, balance models.CreditBalance) {
	m.mu.RLock()
	enabled := m.cfg.Notifications
	m.mu.RUnlock()
	if !enabled || m.notify == nil {
		return
	}

	title := "Credits added"
	body := fmt.Sprintf("%d credits added. Balance: %d", entry.Amount, balance.Amount)
	if err := m.notify(title, body); err != nil {
		logger.Debug("desktop notification failed", "error", err)
	}
}

// recordCall writes one backend call to the request log.
func (m *Manager) recordCall(call client.Call) {
	if m.database == nil {
		return
	}

	entry := &models.RequestLog{
		Timestamp:  time.Now(),
		Method:     call.Method,
		Route:      call.Route,
		StatusCode: call.Status,
		DurationMs: int(call.Duration.Milliseconds()),
		UserID:     m.Session().UserID.String(),
	}
	if call.Err != nil {
		entry.Error = client.Message(call.Err)
	}

	if err := m.database.InsertRequestLog(context.Background(), entry); err != nil {
		logger.Warn("failed to record request", "route", call.Route, "error", err)
	}
}

// SignUp creates an account. The session stays anonymous.
func (m *Manager) SignUp(ctx context.Context, email, password string) session.Result {
	return m.connection().session.SignUp(ctx, email, password)
}

// SignIn authenticates and, on success, replaces every store with a fresh
// one bound to the new user, then loads the persisted credit ledger.
func (m *Manager) SignIn(ctx context.Context, email, password string) session.Result {
	conn := m.connection()
	res := conn.session.SignIn(ctx, email, password)
	if !res.OK() {
		return res
	}

	userID := conn.session.Current().UserID.String()
	fresh, ok := m.rotateStores(conn, userID)
	if !ok {
		return res
	}

	if _, err := fresh.credits.Load(ctx); err != nil && !errors.Is(err, credits.ErrClosed) {
		logger.Warn("failed to load credits after sign in", "error", err)
	}
	return res
}

// SignOut clears the session locally and drops every cached resource.
func (m *Manager) SignOut() {
	conn := m.connection()
	conn.session.SignOut()
	m.rotateStores(conn, "")
}

// ClearSessionError dismisses the last sign-in failure.
func (m *Manager) ClearSessionError() {
	m.connection().session.ClearError()
}

// rotateStores swaps in a new store generation if conn is still current.
func (m *Manager) rotateStores(conn *connection, userID string) (*stores, bool) {
	fresh := m.newStores(conn, userID)

	m.mu.Lock()
	if m.closed || m.conn != conn {
		m.mu.Unlock()
		fresh.close()
		return nil, false
	}
	old := m.stores
	m.stores = fresh
	m.mu.Unlock()

	old.close()
	return fresh, true
}

// Reconfigure applies a new configuration. When the backend URL or the
// request timeout change, the current session is dropped and a new
// connection replaces the old one.
func (m *Manager) Reconfigure(cfg *config.Config) error {
	m.mu.RLock()
	prev := m.cfg
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return errors.New("service manager closed")
	}

	reconnect := prev.APIURL != cfg.APIURL || prev.RequestTimeout != cfg.RequestTimeout
	if !reconnect {
		m.mu.Lock()
		m.cfg = cfg
		m.mu.Unlock()
		m.broadcast(ConfigReloadedEvent{Config: cfg})
		return nil
	}

	conn, err := m.connect(cfg)
	if err != nil {
		return err
	}
	fresh := m.newStores(conn, "")

	m.mu.Lock()
	oldConn, oldStores := m.conn, m.stores
	m.cfg = cfg
	m.conn = conn
	m.stores = fresh
	m.mu.Unlock()

	close(oldConn.stop)
	oldStores.close()
	if err := oldConn.client.ExpireCredentials(); err != nil {
		logger.Warn("failed to expire credentials", "error", err)
	}

	logger.Info("backend changed", "from", prev.APIURL, "to", cfg.APIURL)
	m.broadcast(SessionChangedEvent{Session: conn.session.Current()})
	m.broadcast(ConfigReloadedEvent{Config: cfg, Reconnected: true})
	return nil
}

// WatchConfig reconfigures the manager whenever the loaded .env file
// changes. It is a no-op when no file was loaded.
func (m *Manager) WatchConfig() error {
	m.mu.RLock()
	path := m.cfg.EnvFile
	m.mu.RUnlock()
	if path == "" {
		return nil
	}

	w, err := config.Watch(path, func(cfg *config.Config) {
		if err := m.Reconfigure(cfg); err != nil {
			m.broadcast(ErrorEvent{Service: "config", Error: err})
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	m.mu.Lock()
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
	m.watcher = w
	m.mu.Unlock()
	return nil
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel. It yields
// nil once the channel is closed.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return event
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (m *Manager) connection() *connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn
}

// Session returns the current session snapshot.
func (m *Manager) Session() models.Session {
	conn := m.connection()
	if conn == nil {
		return models.Session{}
	}
	return conn.session.Current()
}

// Keys returns the API key store of the current generation.
func (m *Manager) Keys() *apikeys.Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stores.keys
}

// Catalog returns the catalog store of the current generation.
func (m *Manager) Catalog() *catalog.Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stores.catalog
}

// Credits returns the credit store of the current generation.
func (m *Manager) Credits() *credits.Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stores.credits
}

// Config returns the active configuration.
func (m *Manager) Config() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// BaseURL returns the backend the manager talks to.
func (m *Manager) BaseURL() string {
	return m.connection().client.BaseURL()
}

// RecentRequests returns the newest request log rows first.
func (m *Manager) RecentRequests(ctx context.Context, limit int) ([]models.RequestLog, error) {
	return m.database.GetRecentRequests(ctx, limit)
}

// RequestStats aggregates the request log.
func (m *Manager) RequestStats(ctx context.Context) (*models.RequestStats, error) {
	return m.database.GetRequestStats(ctx)
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	conn, st, w := m.conn, m.stores, m.watcher
	m.mu.Unlock()

	close(conn.stop)
	st.close()

	var errs []error
	if w != nil {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.database.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
