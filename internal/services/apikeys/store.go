// Package apikeys caches the user's API keys and mirrors server-confirmed
// changes into that cache.
package apikeys

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/logger"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
)

// ErrClosed is returned when a response arrives after the store was closed.
// The response is discarded.
var ErrClosed = errors.New("api key store closed")

// Transport performs backend calls.
type Transport interface {
	Do(ctx context.Context, req client.Request, out any) error
}

// EventType defines the type of key store event.
type EventType int

const (
	EventLoading EventType = iota
	EventListed
	EventCreated
	EventRemoved
	EventUpdated
	EventListFailed
)

// Event describes a change to the store.
type Event struct {
	KeyID models.ID
	Type  EventType
}

// Snapshot is a consistent copy of the store for rendering.
type Snapshot struct {
	State models.LoadState
	Keys  []models.APIKey
}

// Option configures a Store.
type Option func(*Store)

// WithListener registers fn to be called after every change.
func WithListener(fn func(Event)) Option {
	return func(s *Store) {
		s.listener = fn
	}
}

// Store is the client-side cache of API keys.
type Store struct {
	transport Transport
	listener  func(Event)

	mu       sync.RWMutex
	keys     []models.APIKey
	state    models.LoadState
	inflight int
	closed   bool
}

// New creates an empty store.
func New(transport Transport, opts ...Option) *Store {
	s := &Store{transport: transport}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type keyWire struct {
	Name      *string   `json:"name"`
	Disabled  *bool     `json:"disabled"`
	ID        models.ID `json:"id"`
	Secret    string    `json:"secret"`
	APIKey    string    `json:"apiKey"`
	Key       string    `json:"key"`
	CreatedAt string    `json:"createdAt"`
}

func (w keyWire) secret() string {
	for _, s := range []string{w.Secret, w.APIKey, w.Key} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (w keyWire) toKey(fallbackName string) models.APIKey {
	k := models.APIKey{
		ID:     w.ID,
		Name:   fallbackName,
		Secret: w.secret(),
	}
	if w.Name != nil && *w.Name != "" {
		k.Name = *w.Name
	}
	if w.Disabled != nil {
		k.Disabled = *w.Disabled
	}
	if ts, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
		k.CreatedAt = ts
	}
	return k
}

type listResponse struct {
	APIKeys []keyWire `json:"apiKeys"`
}

// List fetches all keys and replaces the cache wholesale. Entries without an
// id cannot be addressed and are skipped. On failure the previous keys stay
// visible and the error is recorded in the load state.
func (s *Store) List(ctx context.Context) ([]models.APIKey, error) {
	s.beginLoad()

	var resp listResponse
	err := s.transport.Do(ctx, client.Request{Method: http.MethodGet, Path: "/api-key/"}, &resp)

	s.mu.Lock()
	s.inflight--
	s.state.Loading = s.inflight > 0
	if discard := s.discardLocked(ctx); discard != nil {
		s.mu.Unlock()
		return nil, discard
	}

	if err != nil {
		s.state.Err = err
		s.mu.Unlock()
		s.notify(Event{Type: EventListFailed})
		return nil, err
	}

	keys := make([]models.APIKey, 0, len(resp.APIKeys))
	index := make(map[models.ID]int, len(resp.APIKeys))
	skipped := 0
	for _, w := range resp.APIKeys {
		k := w.toKey("")
		if k.ID.IsZero() {
			skipped++
			continue
		}
		if i, dup := index[k.ID]; dup {
			keys[i] = k
			continue
		}
		index[k.ID] = len(keys)
		keys = append(keys, k)
	}

	if skipped > 0 {
		logger.Warn("ignored api keys without an id", "count", skipped)
	}

	s.keys = keys
	s.state.Err = nil
	s.state.Loaded = true
	s.state.UpdatedAt = time.Now()
	out := cloneKeys(keys)
	s.mu.Unlock()

	s.notify(Event{Type: EventListed})
	return out, nil
}

// Create asks the server for a new key and appends it, one-time secret
// included. Blank names are rejected without a request.
func (s *Store) Create(ctx context.Context, name string) (models.APIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.APIKey{}, client.Validation("create api key", "API key name is required")
	}

	var w keyWire
	err := s.transport.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/api-key/",
		Body:   map[string]string{"name": name},
	}, &w)
	if err == nil && w.ID.IsZero() {
		err = &client.Error{Op: "create api key", Kind: client.KindDecode, Message: "server did not return an id for the new key"}
	}
	if err != nil {
		return models.APIKey{}, err
	}

	key := w.toKey(name)

	s.mu.Lock()
	if discard := s.discardLocked(ctx); discard != nil {
		s.mu.Unlock()
		return models.APIKey{}, discard
	}
	if i := s.indexLocked(key.ID); i >= 0 {
		s.keys[i] = key
	} else {
		s.keys = append(s.keys, key)
	}
	s.mu.Unlock()

	logger.Info("api key created", "id", key.ID.String())
	s.notify(Event{Type: EventCreated, KeyID: key.ID})
	return key, nil
}

// Remove deletes a key on the server and drops it from the cache. A key the
// server no longer knows is treated as already removed.
func (s *Store) Remove(ctx context.Context, id models.ID) error {
	err := s.transport.Do(ctx, client.Request{
		Method: http.MethodDelete,
		Path:   "/api-key/" + url.PathEscape(id.String()),
		Route:  "/api-key/{id}",
	}, nil)
	if err != nil && !client.IsNotFound(err) {
		return err
	}

	s.mu.Lock()
	if discard := s.discardLocked(ctx); discard != nil {
		s.mu.Unlock()
		return discard
	}
	removed := false
	if i := s.indexLocked(id); i >= 0 {
		s.keys = append(s.keys[:i:i], s.keys[i+1:]...)
		removed = true
	}
	s.mu.Unlock()

	if removed {
		logger.Info("api key removed", "id", id.String())
		s.notify(Event{Type: EventRemoved, KeyID: id})
	}
	return nil
}

// Update sets the disabled flag. The cached entry is patched from the
// server's acknowledged fields, falling back to the requested value only when
// the response omits them.
func (s *Store) Update(ctx context.Context, id models.ID, disabled bool) (models.APIKey, error) {
	body := struct {
		ID       models.ID `json:"id"`
		Disabled bool      `json:"disabled"`
	}{ID: id, Disabled: disabled}

	var w keyWire
	if err := s.transport.Do(ctx, client.Request{
		Method: http.MethodPut,
		Path:   "/api-key/disable",
		Body:   body,
	}, &w); err != nil {
		return models.APIKey{}, err
	}

	ackDisabled := disabled
	if w.Disabled != nil {
		ackDisabled = *w.Disabled
	}

	s.mu.Lock()
	if discard := s.discardLocked(ctx); discard != nil {
		s.mu.Unlock()
		return models.APIKey{}, discard
	}

	var key models.APIKey
	if i := s.indexLocked(id); i >= 0 {
		s.keys[i].Disabled = ackDisabled
		if w.Name != nil && *w.Name != "" {
			s.keys[i].Name = *w.Name
		}
		key = s.keys[i]
	} else {
		key = w.toKey("")
		key.ID = id
		key.Disabled = ackDisabled
	}
	s.mu.Unlock()

	s.notify(Event{Type: EventUpdated, KeyID: id})
	return key, nil
}

// Toggle flips the cached disabled flag of a key.
func (s *Store) Toggle(ctx context.Context, id models.ID) (models.APIKey, error) {
	key, ok := s.Get(id)
	if !ok {
		return models.APIKey{}, &client.Error{Op: "toggle api key", Kind: client.KindResource, Message: "API key not found"}
	}
	return s.Update(ctx, id, !key.Disabled)
}

// ClearSecret forgets the one-time secret of a key after it has been shown.
func (s *Store) ClearSecret(id models.ID) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 || s.keys[i].Secret == "" {
		s.mu.Unlock()
		return
	}
	s.keys[i].Secret = ""
	s.mu.Unlock()

	s.notify(Event{Type: EventUpdated, KeyID: id})
}

// Get returns the cached key with the given id.
func (s *Store) Get(id models.ID) (models.APIKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.keys[i], true
	}
	return models.APIKey{}, false
}

// Keys returns a copy of the cached keys.
func (s *Store) Keys() []models.APIKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneKeys(s.keys)
}

// Snapshot returns the keys together with the load state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Keys: cloneKeys(s.keys), State: s.state}
}

// Close detaches the store; later responses are discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Store) beginLoad() {
	s.mu.Lock()
	s.inflight++
	s.state.Loading = true
	s.mu.Unlock()
	s.notify(Event{Type: EventLoading})
}

// discardLocked reports why a response must not be applied, if it must not.
func (s *Store) discardLocked(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return client.Normalize("api keys", err)
	}
	return nil
}

func (s *Store) indexLocked(id models.ID) int {
	for i := range s.keys {
		if s.keys[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) notify(ev Event) {
	if s.listener != nil {
		s.listener(ev)
	}
}

func cloneKeys(keys []models.APIKey) []models.APIKey {
	out := make([]models.APIKey, len(keys))
	copy(out, keys)
	return out
}
