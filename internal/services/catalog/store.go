// Package catalog holds the read-only model and provider catalog together
// with per-model provider offerings.
package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
)

// ErrClosed is returned when a response arrives after the store was closed.
var ErrClosed = errors.New("catalog store closed")

// Transport performs backend calls.
type Transport interface {
	Do(ctx context.Context, req client.Request, out any) error
}

// EventType defines the type of catalog event.
type EventType int

const (
	EventLoading EventType = iota
	EventListed
	EventListFailed
	EventOfferingsLoaded
)

// Event describes a catalog change. ModelID is set for offering events.
type Event struct {
	ModelID models.ID
	Type    EventType
}

// Snapshot is a consistent copy of the catalog.
type Snapshot struct {
	State     models.LoadState
	Models    []models.Model
	Providers []models.Provider
}

// Option configures a Store.
type Option func(*Store)

// WithListener registers fn to be called after every change.
func WithListener(fn func(Event)) Option {
	return func(s *Store) {
		s.listener = fn
	}
}

// Store caches the catalog for the lifetime of one session. Offerings are
// memoized per model id and never invalidated; a new Store is required to
// observe provider changes.
type Store struct {
	transport Transport
	listener  func(Event)
	flights   singleflight.Group

	// base scopes shared offering fetches; Close cancels it.
	base   context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	models    []models.Model
	providers []models.Provider
	offerings map[models.ID][]models.ModelProviderOffering
	state     models.LoadState
	inflight  int
	closed    bool
}

// New creates an empty catalog store.
func New(transport Transport, opts ...Option) *Store {
	s := &Store{
		transport: transport,
		offerings: make(map[models.ID][]models.ModelProviderOffering),
	}
	s.base, s.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type modelsResponse struct {
	Models []models.Model `json:"models"`
}

type providersResponse struct {
	Providers []models.Provider `json:"providers"`
}

type offeringsResponse struct {
	Providers []models.ModelProviderOffering `json:"providers"`
}

// List fetches models and providers concurrently. The snapshot is replaced
// only when both succeed, so views never see half of a catalog.
func (s *Store) List(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	s.inflight++
	s.state.Loading = true
	s.mu.Unlock()
	s.notify(Event{Type: EventLoading})

	var mr modelsResponse
	var pr providersResponse

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.transport.Do(gctx, client.Request{Method: http.MethodGet, Path: "/models/"}, &mr)
	})
	g.Go(func() error {
		return s.transport.Do(gctx, client.Request{Method: http.MethodGet, Path: "/models/providers"}, &pr)
	})
	err := g.Wait()

	s.mu.Lock()
	s.inflight--
	s.state.Loading = s.inflight > 0
	if discard := s.discardLocked(ctx); discard != nil {
		s.mu.Unlock()
		return Snapshot{}, discard
	}

	if err != nil {
		s.state.Err = err
		s.mu.Unlock()
		s.notify(Event{Type: EventListFailed})
		return Snapshot{}, err
	}

	s.models = nonNil(mr.Models)
	s.providers = nonNil(pr.Providers)
	s.state.Err = nil
	s.state.Loaded = true
	s.state.UpdatedAt = time.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(Event{Type: EventListed})
	return snap, nil
}

// ProvidersForModel returns the offerings for one model. The first call per
// model id hits the network; concurrent callers share that call and later
// callers get the cached list. Failures are not cached.
//
// The shared request is bound to the store, not to any caller, so a caller
// whose ctx ends only stops waiting and the others still get the result.
func (s *Store) ProvidersForModel(ctx context.Context, modelID models.ID) ([]models.ModelProviderOffering, error) {
	if cached, ok := s.CachedOfferings(modelID); ok {
		return cached, nil
	}

	ch := s.flights.DoChan(modelID.String(), func() (any, error) {
		return s.fetchOfferings(modelID)
	})

	select {
	case <-ctx.Done():
		return nil, client.Normalize("catalog", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneOfferings(res.Val.([]models.ModelProviderOffering)), nil
	}
}

func (s *Store) fetchOfferings(modelID models.ID) ([]models.ModelProviderOffering, error) {
	if cached, ok := s.CachedOfferings(modelID); ok {
		return cached, nil
	}

	var resp offeringsResponse
	err := s.transport.Do(s.base, client.Request{
		Method: http.MethodGet,
		Path:   "/models/" + url.PathEscape(modelID.String()) + "/providers",
		Route:  "/models/{id}/providers",
	}, &resp)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	offerings := nonNil(resp.Providers)
	s.offerings[modelID] = offerings
	s.mu.Unlock()

	s.notify(Event{Type: EventOfferingsLoaded, ModelID: modelID})
	return cloneOfferings(offerings), nil
}

// CachedOfferings returns previously fetched offerings without a request.
func (s *Store) CachedOfferings(modelID models.ID) ([]models.ModelProviderOffering, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offerings, ok := s.offerings[modelID]
	if !ok {
		return nil, false
	}
	return cloneOfferings(offerings), true
}

// Model returns a cached model by id.
func (s *Store) Model(id models.ID) (models.Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.models {
		if m.ID == id {
			return m, true
		}
	}
	return models.Model{}, false
}

// ProviderName resolves a provider id against the catalog, falling back to
// "Provider <id>" for unknown ids.
func (s *Store) ProviderName(id models.ID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.providers {
		if p.ID == id && p.Name != "" {
			return p.Name
		}
	}
	return "Provider " + id.String()
}

// Snapshot returns the catalog together with its load state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Close detaches the store; later responses are discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	return nil
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		State:     s.state,
		Models:    append([]models.Model(nil), s.models...),
		Providers: append([]models.Provider(nil), s.providers...),
	}
}

func (s *Store) discardLocked(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return client.Normalize("catalog", err)
	}
	return nil
}

func (s *Store) notify(ev Event) {
	if s.listener != nil {
		s.listener(ev)
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func cloneOfferings(in []models.ModelProviderOffering) []models.ModelProviderOffering {
	out := make([]models.ModelProviderOffering, len(in))
	for i, o := range in {
		out[i] = o
		out[i].Features = append(make([]string, 0, len(o.Features)), o.Features...)
	}
	return out
}
