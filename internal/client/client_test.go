package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)
	return c, srv
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New("not a url", Options{})
	assert.Error(t, err)
}

func TestDo_DecodesSuccess(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"prod"}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"k1","name":"prod"}`))
	})

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := c.Post(context.Background(), "/api-key/", map[string]string{"name": "prod"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "k1", out.ID)
	assert.Equal(t, "prod", out.Name)
}

func TestDo_EmptyBodyLeavesOutUntouched(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	out := map[string]string{"kept": "yes"}
	require.NoError(t, c.Do(context.Background(), Request{Method: http.MethodDelete, Path: "/api-key/1"}, &out))
	assert.Equal(t, "yes", out["kept"])
}

func TestDo_ErrorNormalization(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantKind    Kind
	}{
		{
			name:        "ErrorField",
			status:      http.StatusUnauthorized,
			body:        `{"error":"Invalid credentials"}`,
			wantMessage: "Invalid credentials",
			wantKind:    KindAuth,
		},
		{
			name:        "MessageField",
			status:      http.StatusBadRequest,
			body:        `{"message":"name is required"}`,
			wantMessage: "name is required",
			wantKind:    KindValidation,
		},
		{
			name:        "NestedError",
			status:      http.StatusConflict,
			body:        `{"error":{"message":"already exists"}}`,
			wantMessage: "already exists",
			wantKind:    KindResource,
		},
		{
			name:        "ErrorWinsOverMessage",
			status:      http.StatusNotFound,
			body:        `{"error":"key not found","message":"Not Found"}`,
			wantMessage: "key not found",
			wantKind:    KindResource,
		},
		{
			name:        "UnparsableBody",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantMessage: "request failed with status 502",
			wantKind:    KindHTTP,
		},
		{
			name:        "EmptyBody",
			status:      http.StatusInternalServerError,
			wantMessage: "request failed with status 500",
			wantKind:    KindHTTP,
		},
		{
			name:        "JSONWithoutMessage",
			status:      http.StatusForbidden,
			body:        `{"code":42}`,
			wantMessage: "request failed with status 403",
			wantKind:    KindAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			var out map[string]any
			err := c.Get(context.Background(), "/models/", &out)
			require.Error(t, err)

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.wantMessage, e.Error())
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.status, e.Status)
			assert.Nil(t, out, "failed calls must not produce a value")
		})
	}
}

func TestDo_MalformedSuccessBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"apiKeys": [`))
	})

	var out struct {
		APIKeys []any `json:"apiKeys"`
	}
	err := c.Get(context.Background(), "/api-key/", &out)
	require.Error(t, err)
	assert.Equal(t, KindDecode, KindOf(err))
	assert.Equal(t, "malformed response from server", Message(err))
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c, err := New(srv.URL, Options{})
	require.NoError(t, err)
	srv.Close()

	err = c.Get(context.Background(), "/models/", nil)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Contains(t, Message(err), "network error")
}

func TestDo_Canceled(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := c.Get(ctx, "/models/", nil)
	require.Error(t, err)
	assert.Equal(t, KindCanceled, KindOf(err))
}

func TestDo_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, Options{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	err = c.Get(context.Background(), "/models/", nil)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestCredentials_SentAndExpired(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/signin" {
			http.SetCookie(w, &http.Cookie{Name: "auth", Value: "opaque", Path: "/"})
			_, _ = w.Write([]byte(`{"id":"u1"}`))
			return
		}
		mu.Lock()
		if ck, err := r.Cookie("auth"); err == nil {
			seen = append(seen, ck.Value)
		} else {
			seen = append(seen, "")
		}
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	assert.False(t, c.HasCredentials())

	require.NoError(t, c.Post(ctx, "/auth/signin", map[string]string{"email": "a@b.com"}, nil))
	assert.True(t, c.HasCredentials())

	require.NoError(t, c.Get(ctx, "/api-key/", nil))

	require.NoError(t, c.ExpireCredentials())
	assert.False(t, c.HasCredentials())

	require.NoError(t, c.Get(ctx, "/api-key/", nil))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"opaque", ""}, seen)
}

func TestObserver_AndMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var calls []Call
	c, err := New(srv.URL, Options{Observer: func(call Call) { calls = append(calls, call) }})
	require.NoError(t, err)

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodDelete, "/observed/{id}", "418"))

	err = c.Do(context.Background(), Request{Method: http.MethodDelete, Path: "/observed/9", Route: "/observed/{id}"}, nil)
	require.Error(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, "/observed/{id}", calls[0].Route)
	assert.Equal(t, http.StatusTeapot, calls[0].Status)
	assert.Error(t, calls[0].Err)

	after := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodDelete, "/observed/{id}", "418"))
	assert.Equal(t, before+1, after)
}

func TestServeMetrics(t *testing.T) {
	s, err := ServeMetrics("127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = s.Shutdown(context.Background()) }()

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
