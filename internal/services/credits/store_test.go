package credits

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/client"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/db"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/testutil"
)

func signedInClient(t *testing.T) (*client.Client, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackend(t)
	backend.AddUser("a@b.com", "secret123")

	c, err := client.New(backend.URL(), client.Options{})
	require.NoError(t, err)
	require.NoError(t, c.Post(context.Background(), "/auth/signin",
		map[string]string{"email": "a@b.com", "password": "secret123"}, nil))
	return c, backend
}

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

type funcTransport func(ctx context.Context, req client.Request, out any) error

func (f funcTransport) Do(ctx context.Context, req client.Request, out any) error {
	return f(ctx, req, out)
}

type failingRepo struct{}

func (failingRepo) InsertLedgerEntry(context.Context, string, models.LedgerEntry) error {
	return errors.New("disk full")
}

func (failingRepo) ListLedgerEntries(context.Context, string, int) ([]models.LedgerEntry, error) {
	return nil, errors.New("disk unreadable")
}

// gatedRepo takes its read of the ledger, then blocks until release is closed.
type gatedRepo struct {
	LedgerRepository
	read    chan struct{}
	release chan struct{}
}

func (g *gatedRepo) ListLedgerEntries(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	entries, err := g.LedgerRepository.ListLedgerEntries(ctx, userID, limit)
	close(g.read)
	<-g.release
	return entries, err
}

func grantTransport(credits int64) funcTransport {
	return func(_ context.Context, _ client.Request, out any) error {
		out.(*onrampResponse).Credits = ptr(credits)
		return nil
	}
}

func TestNew_StartsEmpty(t *testing.T) {
	s := New(nil)

	assert.Equal(t, int64(0), s.Balance().Amount)
	assert.NotNil(t, s.Ledger())
	assert.Empty(t, s.Ledger())
	assert.Equal(t, "idle", s.Snapshot().State.Label())
}

func TestOnramp(t *testing.T) {
	c, backend := signedInClient(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New(c, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	entry, err := s.Onramp(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(100), entry.Amount)
	assert.Equal(t, models.LedgerCredit, entry.Kind)
	assert.Equal(t, OnrampDescription, entry.Description)
	assert.Equal(t, fixed, entry.Timestamp)
	_, parseErr := uuid.Parse(entry.ID)
	assert.NoError(t, parseErr)

	backend.SetOnrampCredits(25)
	second, err := s.Onramp(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, entry.ID, second.ID)

	assert.Equal(t, int64(125), s.Balance().Amount)
	ledger := s.Ledger()
	require.Len(t, ledger, 2)
	assert.Equal(t, second.ID, ledger[0].ID, "newest entry first")
	assert.Equal(t, entry.ID, ledger[1].ID)
	assert.Equal(t, 2, backend.Hits("POST /payments/onramp"))
}

func TestOnramp_RejectsNonPositiveCredits(t *testing.T) {
	for _, tc := range []struct {
		name string
		set  func(out any)
	}{
		{"zero", func(out any) { *out.(*onrampResponse) = onrampResponse{Credits: ptr(int64(0))} }},
		{"negative", func(out any) { *out.(*onrampResponse) = onrampResponse{Credits: ptr(int64(-5))} }},
		{"missing", func(any) {}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := New(funcTransport(func(_ context.Context, _ client.Request, out any) error {
				tc.set(out)
				return nil
			}))

			_, err := s.Onramp(context.Background())
			require.Error(t, err)
			assert.Equal(t, client.KindDecode, client.KindOf(err))
			assert.Equal(t, int64(0), s.Balance().Amount)
			assert.Empty(t, s.Ledger())
		})
	}
}

func TestOnramp_ServerErrorChangesNothing(t *testing.T) {
	c, backend := signedInClient(t)
	backend.Fail("POST /payments/onramp", http.StatusPaymentRequired, `{"error":"Payment method required"}`)
	s := New(c)

	_, err := s.Onramp(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Payment method required", client.Message(err))
	assert.Equal(t, client.KindHTTP, client.KindOf(err))
	assert.Empty(t, s.Ledger())
}

func TestOnramp_RequiresSession(t *testing.T) {
	backend := testutil.NewBackend(t)
	c, err := client.New(backend.URL(), client.Options{})
	require.NoError(t, err)
	s := New(c)

	_, err = s.Onramp(context.Background())
	require.Error(t, err)
	assert.Equal(t, client.KindAuth, client.KindOf(err))
}

func TestOnramp_PersistsAndLoads(t *testing.T) {
	c, _ := signedInClient(t)
	repo := newTestDB(t)
	ctx := context.Background()

	s := New(c, WithRepository(repo, "1"))
	_, err := s.Onramp(ctx)
	require.NoError(t, err)
	_, err = s.Onramp(ctx)
	require.NoError(t, err)

	reloaded := New(c, WithRepository(repo, "1"))
	snap, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), snap.Balance.Amount)
	assert.Len(t, snap.Ledger, 2)
	assert.True(t, snap.State.Loaded)

	other := New(c, WithRepository(repo, "2"))
	snap, err = other.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Balance.Amount)
	assert.Empty(t, snap.Ledger)
}

func TestLoad_ClampsNegativeBalance(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.InsertLedgerEntry(ctx, "1", models.LedgerEntry{ID: "a", Kind: models.LedgerCredit, Amount: 10}))
	require.NoError(t, repo.InsertLedgerEntry(ctx, "1", models.LedgerEntry{ID: "b", Kind: models.LedgerDebit, Amount: -40}))

	s := New(nil, WithRepository(repo, "1"))
	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Balance.Amount)
	assert.Len(t, snap.Ledger, 2)
}

func TestLoad_WithoutRepository(t *testing.T) {
	s := New(nil)
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.State.Loaded)
	assert.Empty(t, snap.Ledger)
}

func TestLoad_RepositoryFailure(t *testing.T) {
	s := New(nil, WithRepository(failingRepo{}, "1"))

	_, err := s.Load(context.Background())
	require.Error(t, err)
	snap := s.Snapshot()
	assert.Error(t, snap.State.Err)
	assert.False(t, snap.State.Loaded)
	assert.Equal(t, "error", snap.State.Label())
}

func TestOnramp_PersistenceFailureKeepsEntry(t *testing.T) {
	c, _ := signedInClient(t)
	s := New(c, WithRepository(failingRepo{}, "1"))

	entry, err := s.Onramp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), s.Balance().Amount)
	assert.Equal(t, entry.ID, s.Ledger()[0].ID)
}

func TestLoad_KeepsOnrampFinishedDuringRead(t *testing.T) {
	repo := &gatedRepo{
		LedgerRepository: newTestDB(t),
		read:             make(chan struct{}),
		release:          make(chan struct{}),
	}
	s := New(grantTransport(50), WithRepository(repo, "1"))

	loaded := make(chan Snapshot, 1)
	go func() {
		snap, err := s.Load(context.Background())
		assert.NoError(t, err)
		loaded <- snap
	}()

	<-repo.read
	entry, err := s.Onramp(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(50), s.Balance().Amount)
	close(repo.release)

	snap := <-loaded
	assert.Equal(t, int64(50), snap.Balance.Amount)
	require.Len(t, snap.Ledger, 1)
	assert.Equal(t, entry.ID, snap.Ledger[0].ID)
	assert.Equal(t, int64(50), s.Balance().Amount)
}

func TestLoad_MergesWithoutDuplicates(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.InsertLedgerEntry(ctx, "1", models.LedgerEntry{ID: "old", Kind: models.LedgerCredit, Amount: 10, Timestamp: older}))

	s := New(grantTransport(5), WithRepository(repo, "1"), WithClock(func() time.Time { return older.Add(time.Hour) }))
	entry, err := s.Onramp(ctx)
	require.NoError(t, err)

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Ledger, 2)
	assert.Equal(t, entry.ID, snap.Ledger[0].ID, "newest first")
	assert.Equal(t, "old", snap.Ledger[1].ID)
	assert.Equal(t, int64(15), snap.Balance.Amount)
}

func TestOnramp_ClosedStoreDiscards(t *testing.T) {
	c, backend := signedInClient(t)
	repo := newTestDB(t)
	s := New(c, WithRepository(repo, "1"))
	release := backend.Hold("POST /payments/onramp")

	done := make(chan error, 1)
	go func() {
		_, err := s.Onramp(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		return backend.Hits("POST /payments/onramp") == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Close())
	release()

	assert.ErrorIs(t, <-done, ErrClosed)
	assert.Equal(t, int64(0), s.Balance().Amount)
	assert.Empty(t, s.Ledger())

	persisted, err := repo.ListLedgerEntries(context.Background(), "1", 0)
	require.NoError(t, err)
	require.Len(t, persisted, 1, "granted credits are kept in storage")
	assert.Equal(t, int64(100), persisted[0].Amount)
}

func TestOnramp_CanceledContextDiscards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := newTestDB(t)
	s := New(funcTransport(func(_ context.Context, _ client.Request, out any) error {
		out.(*onrampResponse).Credits = ptr(int64(50))
		cancel()
		return nil
	}), WithRepository(repo, "1"))

	_, err := s.Onramp(ctx)
	require.Error(t, err)
	assert.Equal(t, client.KindCanceled, client.KindOf(err))
	assert.Empty(t, s.Ledger())

	reloaded := New(nil, WithRepository(repo, "1"))
	snap, err := reloaded.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(50), snap.Balance.Amount)
}

func TestLedger_ReturnsCopy(t *testing.T) {
	c, _ := signedInClient(t)
	s := New(c)
	_, err := s.Onramp(context.Background())
	require.NoError(t, err)

	ledger := s.Ledger()
	ledger[0].Amount = 999

	assert.Equal(t, int64(100), s.Ledger()[0].Amount)
}

func TestListener(t *testing.T) {
	c, _ := signedInClient(t)
	var mu sync.Mutex
	var events []Event
	s := New(c, WithListener(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.NoError(t, err)
	entry, err := s.Onramp(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, EventLoaded, events[0].Type)
	assert.Equal(t, EventOnramped, events[1].Type)
	assert.Equal(t, entry, events[1].Entry)
	assert.Equal(t, int64(100), events[1].Balance.Amount)
}

func ptr[T any](v T) *T {
	return &v
}
