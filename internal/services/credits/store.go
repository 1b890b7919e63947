// Package credits tracks the spendable credit balance and its ledger.
package credits

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/logger"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
)

// OnrampDescription labels ledger entries created by Onramp.
const OnrampDescription = "Onramp credits"

// ErrClosed is returned when a response arrives after the store was closed.
var ErrClosed = errors.New("credit store closed")

// Transport performs backend calls.
type Transport interface {
	Do(ctx context.Context, req client.Request, out any) error
}

// LedgerRepository persists ledger entries per user.
type LedgerRepository interface {
	InsertLedgerEntry(ctx context.Context, userID string, entry models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error)
}

// EventType defines the type of credit event.
type EventType int

const (
	EventLoaded EventType = iota
	EventLoadFailed
	EventOnramped
)

// Event describes a credit change. Entry is set for EventOnramped.
type Event struct {
	Entry   models.LedgerEntry
	Balance models.CreditBalance
	Type    EventType
}

// Snapshot is a consistent copy of the balance and ledger.
type Snapshot struct {
	State   models.LoadState
	Ledger  []models.LedgerEntry
	Balance models.CreditBalance
}

// Option configures a Store.
type Option func(*Store)

// WithListener registers fn to be called after every change.
func WithListener(fn func(Event)) Option {
	return func(s *Store) {
		s.listener = fn
	}
}

// WithRepository persists the ledger of userID in repo.
func WithRepository(repo LedgerRepository, userID string) Option {
	return func(s *Store) {
		s.repo = repo
		s.userID = userID
	}
}

// WithClock overrides time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds the balance and the newest-first ledger of one user.
type Store struct {
	transport Transport
	repo      LedgerRepository
	listener  func(Event)
	now       func() time.Time
	userID    string

	mu      sync.RWMutex
	ledger  []models.LedgerEntry
	balance models.CreditBalance
	state   models.LoadState
	closed  bool
}

// New creates a store with a zero balance.
func New(transport Transport, opts ...Option) *Store {
	s := &Store{
		transport: transport,
		now:       time.Now,
		ledger:    []models.LedgerEntry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted ledger and recomputes the balance. Entries held in
// memory but missing from the read, such as an Onramp that finished while the
// read was in flight, are kept. Without a repository it only marks the store
// loaded.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()

	var entries []models.LedgerEntry
	var err error
	if s.repo != nil && s.userID != "" {
		entries, err = s.repo.ListLedgerEntries(ctx, s.userID, 0)
	}

	s.mu.Lock()
	s.state.Loading = false
	if discard := s.discardLocked(ctx); discard != nil {
		s.mu.Unlock()
		return Snapshot{}, discard
	}

	if err != nil {
		s.state.Err = err
		s.mu.Unlock()
		logger.Warn("failed to load credit ledger", "user_id", s.userID, "error", err)
		s.notify(Event{Type: EventLoadFailed})
		return Snapshot{}, err
	}

	if entries != nil {
		s.ledger = mergeLedger(entries, s.ledger)
		s.balance = models.BalanceOf(s.ledger)
	}
	s.state.Err = nil
	s.state.Loaded = true
	s.state.UpdatedAt = s.now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventLoaded, Balance: snap.Balance})
	return snap, nil
}

type onrampResponse struct {
	Credits *int64 `json:"credits"`
}

// Onramp asks the server to grant credits and records them as a new ledger
// entry. A response without a positive amount changes nothing. Granted credits
// are always persisted, even when the store was closed or ctx ended while the
// request was in flight; only the in-memory view is skipped then.
func (s *Store) Onramp(ctx context.Context) (models.LedgerEntry, error) {
	var resp onrampResponse
	if err := s.transport.Do(ctx, client.Request{Method: http.MethodPost, Path: "/payments/onramp"}, &resp); err != nil {
		return models.LedgerEntry{}, err
	}
	if resp.Credits == nil || *resp.Credits <= 0 {
		return models.LedgerEntry{}, &client.Error{
			Op:      "onramp",
			Kind:    client.KindDecode,
			Message: "server did not grant any credits",
		}
	}

	entry := models.LedgerEntry{
		ID:          uuid.NewString(),
		Kind:        models.LedgerCredit,
		Amount:      *resp.Credits,
		Description: OnrampDescription,
		Timestamp:   s.now(),
	}

	if s.repo != nil && s.userID != "" {
		if err := s.repo.InsertLedgerEntry(context.WithoutCancel(ctx), s.userID, entry); err != nil {
			logger.Error("failed to persist ledger entry", "id", entry.ID, "error", err)
		}
	}

	s.mu.Lock()
	if discard := s.discardLocked(ctx); discard != nil {
		s.mu.Unlock()
		return models.LedgerEntry{}, discard
	}
	s.ledger = append([]models.LedgerEntry{entry}, s.ledger...)
	s.balance.Amount += entry.Amount
	balance := s.balance
	s.mu.Unlock()

	logger.Info("credits added", "amount", entry.Amount, "balance", balance.Amount)
	s.notify(Event{Type: EventOnramped, Entry: entry, Balance: balance})
	return entry, nil
}

// Balance returns the current balance.
func (s *Store) Balance() models.CreditBalance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

// Ledger returns a copy of the ledger, newest entry first.
func (s *Store) Ledger() []models.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.LedgerEntry{}, s.ledger...)
}

// Snapshot returns balance, ledger and load state together.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// UserID returns the user the store is bound to.
func (s *Store) UserID() string {
	return s.userID
}

// Close detaches the store; later responses are discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// mergeLedger returns loaded plus every entry of held whose id is not in
// loaded, newest first.
func mergeLedger(loaded, held []models.LedgerEntry) []models.LedgerEntry {
	seen := make(map[string]struct{}, len(loaded))
	merged := make([]models.LedgerEntry, 0, len(loaded)+len(held))
	for _, e := range loaded {
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
	}
	for _, e := range held {
		if _, ok := seen[e.ID]; !ok {
			merged = append(merged, e)
		}
	}
	slices.SortStableFunc(merged, func(a, b models.LedgerEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return merged
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		State:   s.state,
		Ledger:  append([]models.LedgerEntry{}, s.ledger...),
		Balance: s.balance,
	}
}

func (s *Store) discardLocked(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return client.Normalize("credits", err)
	}
	return nil
}

func (s *Store) notify(ev Event) {
	if s.listener != nil {
		s.listener(ev)
	}
}
