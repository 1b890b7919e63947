package apikeys

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/testutil"
)

func newSignedInStore(t *testing.T, opts ...Option) (*Store, *testutil.Backend, int) {
	t.Helper()
	backend := testutil.NewBackend(t)
	uid := backend.AddUser("a@b.com", "secret123")

	c, err := client.New(backend.URL(), client.Options{})
	require.NoError(t, err)
	require.NoError(t, c.Post(context.Background(), "/auth/signin",
		map[string]string{"email": "a@b.com", "password": "secret123"}, nil))

	return New(c, opts...), backend, uid
}

// funcTransport answers calls with a function, for cases the fake backend
// cannot produce.
type funcTransport func(ctx context.Context, req client.Request, out any) error

func (f funcTransport) Do(ctx context.Context, req client.Request, out any) error {
	return f(ctx, req, out)
}

func decodeInto(t *testing.T, body string, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), out))
}

func TestCreateThenList(t *testing.T) {
	s, backend, uid := newSignedInStore(t)
	ctx := context.Background()

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.True(t, s.Snapshot().State.Loaded)

	key, err := s.Create(ctx, "  prod  ")
	require.NoError(t, err)
	assert.Equal(t, "prod", key.Name)
	assert.NotEmpty(t, key.Secret)
	assert.False(t, key.Disabled)
	assert.Equal(t, 1, backend.KeyCount(uid))

	cached := s.Keys()
	require.Len(t, cached, 1)
	assert.Equal(t, key.ID, cached[0].ID)
	assert.True(t, cached[0].HasSecret())

	listed, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, key.ID, listed[0].ID)
	assert.Empty(t, listed[0].Secret, "list responses never carry the secret")
}

func TestCreate_BlankNameRejected(t *testing.T) {
	s, backend, _ := newSignedInStore(t)

	_, err := s.Create(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, client.KindValidation, client.KindOf(err))
	assert.Equal(t, "API key name is required", client.Message(err))
	assert.Zero(t, backend.Hits("POST /api-key/"))
}

func TestCreate_FailureLeavesCache(t *testing.T) {
	s, backend, _ := newSignedInStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "first")
	require.NoError(t, err)

	backend.Fail("POST /api-key/", http.StatusInternalServerError, `{"error":"database unavailable"}`)
	_, err = s.Create(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, "database unavailable", client.Message(err))

	keys := s.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "first", keys[0].Name)
}

func TestCreate_ReplacesDuplicateID(t *testing.T) {
	s := New(funcTransport(func(_ context.Context, _ client.Request, out any) error {
		decodeInto(t, `{"id": 7, "secret": "sk-abc"}`, out)
		return nil
	}))

	_, err := s.Create(context.Background(), "one")
	require.NoError(t, err)
	_, err = s.Create(context.Background(), "two")
	require.NoError(t, err)

	keys := s.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, models.ID("7"), keys[0].ID)
	assert.Equal(t, "two", keys[0].Name)
}

func TestCreate_MissingIDIsFailure(t *testing.T) {
	s := New(funcTransport(func(_ context.Context, _ client.Request, out any) error {
		decodeInto(t, `{"name": "x"}`, out)
		return nil
	}))

	_, err := s.Create(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, client.KindDecode, client.KindOf(err))
	assert.Empty(t, s.Keys())
}

func TestRemove_Idempotent(t *testing.T) {
	s, backend, uid := newSignedInStore(t)
	ctx := context.Background()

	key, err := s.Create(ctx, "prod")
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, key.ID))
	assert.Empty(t, s.Keys())
	assert.Zero(t, backend.KeyCount(uid))

	require.NoError(t, s.Remove(ctx, key.ID), "second removal must not fail")
	assert.Empty(t, s.Keys())
	assert.Equal(t, 2, backend.Hits("DELETE /api-key/"+key.ID.String()))
}

func TestRemove_AbsentLocallyIsNoop(t *testing.T) {
	s := New(funcTransport(func(context.Context, client.Request, any) error { return nil }))

	var events []Event
	s.listener = func(ev Event) { events = append(events, ev) }

	require.NoError(t, s.Remove(context.Background(), "missing"))
	assert.Empty(t, events)
}

func TestRemove_ServerErrorLeavesCache(t *testing.T) {
	s, backend, _ := newSignedInStore(t)
	ctx := context.Background()

	key, err := s.Create(ctx, "prod")
	require.NoError(t, err)

	backend.Fail("DELETE /api-key/"+key.ID.String(), http.StatusInternalServerError, "")
	err = s.Remove(ctx, key.ID)
	require.Error(t, err)
	assert.Equal(t, "request failed with status 500", client.Message(err))

	_, ok := s.Get(key.ID)
	assert.True(t, ok)
}

func TestRemove_EscapesID(t *testing.T) {
	var got client.Request
	s := New(funcTransport(func(_ context.Context, req client.Request, _ any) error {
		got = req
		return nil
	}))

	require.NoError(t, s.Remove(context.Background(), "a/b c"))
	assert.Equal(t, "/api-key/a%2Fb%20c", got.Path)
	assert.Equal(t, "/api-key/{id}", got.Route)
}

func TestToggleTwiceRestores(t *testing.T) {
	s, _, _ := newSignedInStore(t)
	ctx := context.Background()

	key, err := s.Create(ctx, "prod")
	require.NoError(t, err)

	updated, err := s.Toggle(ctx, key.ID)
	require.NoError(t, err)
	assert.True(t, updated.Disabled)

	updated, err = s.Update(ctx, key.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Disabled)

	listed, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.False(t, listed[0].Disabled)
}

func TestToggle_UnknownKey(t *testing.T) {
	s := New(funcTransport(func(context.Context, client.Request, any) error {
		t.Fatal("no request expected")
		return nil
	}))

	_, err := s.Toggle(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, client.KindResource, client.KindOf(err))
}

func TestUpdate_PatchFromAcknowledgement(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		requested bool
		want      bool
	}{
		{"AckMatches", `{"id":"1","disabled":true}`, true, true},
		{"AckOverridesRequest", `{"id":"1","disabled":false}`, true, false},
		{"EmptyAckUsesRequest", ``, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(funcTransport(func(_ context.Context, req client.Request, out any) error {
				if req.Method == http.MethodPut && tt.response != "" {
					decodeInto(t, tt.response, out)
				}
				if req.Method == http.MethodPost {
					decodeInto(t, `{"id":"1","name":"prod","secret":"sk-1"}`, out)
				}
				return nil
			}))

			_, err := s.Create(context.Background(), "prod")
			require.NoError(t, err)

			key, err := s.Update(context.Background(), "1", tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, key.Disabled)

			cached, ok := s.Get("1")
			require.True(t, ok)
			assert.Equal(t, tt.want, cached.Disabled)
			assert.Equal(t, "sk-1", cached.Secret, "update keeps the one-time secret")
		})
	}
}

func TestUpdate_FailureLeavesCache(t *testing.T) {
	s, backend, _ := newSignedInStore(t)
	ctx := context.Background()

	key, err := s.Create(ctx, "prod")
	require.NoError(t, err)

	backend.Fail("PUT /api-key/disable", http.StatusForbidden, `{"error":"Forbidden"}`)
	_, err = s.Toggle(ctx, key.ID)
	require.Error(t, err)
	assert.Equal(t, client.KindAuth, client.KindOf(err))

	cached, _ := s.Get(key.ID)
	assert.False(t, cached.Disabled)
}

func TestList_FailureKeepsPreviousData(t *testing.T) {
	s, backend, _ := newSignedInStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "prod")
	require.NoError(t, err)
	_, err = s.List(ctx)
	require.NoError(t, err)

	backend.Fail("GET /api-key/", http.StatusBadGateway, "")
	_, err = s.List(ctx)
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Len(t, snap.Keys, 1)
	assert.Error(t, snap.State.Err)
	assert.False(t, snap.State.Loading)
	assert.Equal(t, "error", snap.State.Label())

	backend.Recover("GET /api-key/")
	_, err = s.List(ctx)
	require.NoError(t, err)
	assert.NoError(t, s.Snapshot().State.Err)
}

func TestList_UnauthenticatedIsAuthError(t *testing.T) {
	backend := testutil.NewBackend(t)
	c, err := client.New(backend.URL(), client.Options{})
	require.NoError(t, err)

	_, err = New(c).List(context.Background())
	require.Error(t, err)
	assert.Equal(t, client.KindAuth, client.KindOf(err))
}

func TestList_CollapsesDuplicateIDs(t *testing.T) {
	s := New(funcTransport(func(_ context.Context, _ client.Request, out any) error {
		decodeInto(t, `{"apiKeys":[{"id":"1","name":"old"},{"id":2,"name":"b"},{"id":"1","name":"new","disabled":true}]}`, out)
		return nil
	}))

	keys, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "new", keys[0].Name)
	assert.True(t, keys[0].Disabled)
	assert.Equal(t, models.ID("2"), keys[1].ID)
}

func TestList_SkipsKeysWithoutID(t *testing.T) {
	s := New(funcTransport(func(_ context.Context, _ client.Request, out any) error {
		decodeInto(t, `{"apiKeys":[{"name":"orphan"},{"id":"","name":"blank"},{"id":null,"name":"null"},{"id":"7","name":"ok"}]}`, out)
		return nil
	}))

	keys, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, models.ID("7"), keys[0].ID)
	_, ok := s.Get("")
	assert.False(t, ok)
}

func TestList_MissingFieldIsEmpty(t *testing.T) {
	s := New(funcTransport(func(_ context.Context, _ client.Request, out any) error {
		decodeInto(t, `{}`, out)
		return nil
	}))

	keys, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.True(t, s.Snapshot().State.Loaded)
}

func TestLoadingFlag(t *testing.T) {
	s, backend, _ := newSignedInStore(t)
	release := backend.Hold("GET /api-key/")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.List(context.Background())
	}()

	require.Eventually(t, func() bool {
		return s.Snapshot().State.Loading
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, s.Snapshot().State.Loaded, "loading is distinct from an empty result")

	release()
	<-done
	snap := s.Snapshot()
	assert.False(t, snap.State.Loading)
	assert.True(t, snap.State.Loaded)
}

func TestClose_DiscardsLateResponses(t *testing.T) {
	s, backend, uid := newSignedInStore(t)
	release := backend.Hold("POST /api-key/")

	var wg sync.WaitGroup
	var createErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, createErr = s.Create(context.Background(), "late")
	}()

	require.Eventually(t, func() bool {
		return backend.Hits("POST /api-key/") == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Close())
	release()
	wg.Wait()

	assert.ErrorIs(t, createErr, ErrClosed)
	assert.Empty(t, s.Keys())
	assert.Equal(t, 1, backend.KeyCount(uid), "the server still created it")
}

func TestCanceledContext_DiscardsResponse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(funcTransport(func(_ context.Context, _ client.Request, out any) error {
		decodeInto(t, `{"id":"1","secret":"sk"}`, out)
		cancel()
		return nil
	}))

	_, err := s.Create(ctx, "prod")
	require.Error(t, err)
	assert.Equal(t, client.KindCanceled, client.KindOf(err))
	assert.Empty(t, s.Keys())
}

func TestClearSecret(t *testing.T) {
	s, _, _ := newSignedInStore(t)

	key, err := s.Create(context.Background(), "prod")
	require.NoError(t, err)

	s.ClearSecret(key.ID)
	cached, _ := s.Get(key.ID)
	assert.Empty(t, cached.Secret)
}

func TestListener(t *testing.T) {
	var mu sync.Mutex
	var types []EventType
	s, _, _ := newSignedInStore(t, WithListener(func(ev Event) {
		mu.Lock()
		types = append(types, ev.Type)
		mu.Unlock()
	}))
	ctx := context.Background()

	_, err := s.List(ctx)
	require.NoError(t, err)
	key, err := s.Create(ctx, "prod")
	require.NoError(t, err)
	_, err = s.Toggle(ctx, key.ID)
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, key.ID))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventLoading, EventListed, EventCreated, EventUpdated, EventRemoved}, types)
}
