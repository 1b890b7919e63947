// Package testutil provides an in-memory EasyRouter backend for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// CookieName is the session cookie set on sign-in.
const CookieName = "auth"

type user struct {
	id       int
	email    string
	password string
}

type apiKey struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Disabled bool   `json:"disabled"`
}

type failure struct {
	status int
	body   string
}

// Backend is a fake server implementing the EasyRouter HTTP contract.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	users     map[string]*user
	sessions  map[string]int
	keys      map[int][]apiKey
	nextID    int
	hits      map[string]int
	failures  map[string]failure
	gates     map[string]chan struct{}
	models    []map[string]any
	providers []map[string]any
	offerings map[string][]map[string]any
	credits   int
}

// NewBackend starts a backend seeded with a small catalog. It is closed when
// the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		users:    make(map[string]*user),
		sessions: make(map[string]int),
		keys:     make(map[int][]apiKey),
		hits:     make(map[string]int),
		failures: make(map[string]failure),
		gates:    make(map[string]chan struct{}),
		nextID:   1,
		models: []map[string]any{
			{"id": "gpt-4o", "name": "GPT-4o", "description": "Flagship multimodal model", "category": "chat"},
			{"id": "claude-3-5-sonnet", "name": "Claude 3.5 Sonnet", "category": "chat"},
		},
		providers: []map[string]any{
			{"id": "openai", "name": "OpenAI", "description": "OpenAI API"},
			{"id": "azure", "name": "Azure OpenAI"},
			{"id": "anthropic", "name": "Anthropic"},
		},
		offerings: map[string][]map[string]any{
			"gpt-4o": {
				{"providerId": "openai", "pricing": "$5/M input", "features": []string{"streaming", "tools"}, "endpoint": "https://api.openai.com/v1"},
				{"providerId": "azure", "pricing": "$5.50/M input", "features": []string{"streaming"}},
			},
			"claude-3-5-sonnet": {
				{"providerId": "anthropic", "pricing": "$3/M input", "features": []string{"streaming", "vision"}},
			},
		},
		credits: 100,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signup", b.handleSignUp)
	mux.HandleFunc("POST /auth/signin", b.handleSignIn)
	mux.HandleFunc("GET /api-key/{$}", b.authed(b.handleListKeys))
	mux.HandleFunc("POST /api-key/{$}", b.authed(b.handleCreateKey))
	mux.HandleFunc("DELETE /api-key/{id}", b.authed(b.handleDeleteKey))
	mux.HandleFunc("PUT /api-key/disable", b.authed(b.handleDisableKey))
	mux.HandleFunc("GET /models/{$}", b.handleModels)
	mux.HandleFunc("GET /models/providers", b.handleProviders)
	mux.HandleFunc("GET /models/{id}/providers", b.handleOfferings)
	mux.HandleFunc("POST /payments/onramp", b.authed(b.handleOnramp))

	b.Server = httptest.NewServer(b.intercept(mux))
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Hits returns how many requests reached "METHOD /path".
func (b *Backend) Hits(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

// Fail makes every request to "METHOD /path" answer with status and body
// until Recover is called.
func (b *Backend) Fail(route string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, body: body}
}

// Recover removes an injected failure.
func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// Hold blocks requests to "METHOD /path" until the returned release func is called.
func (b *Backend) Hold(route string) (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gates[route] = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.gates, route)
			b.mu.Unlock()
			close(gate)
		})
	}
}

// SetModels replaces the model catalog.
func (b *Backend) SetModels(list []map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.models = list
}

// SetProviders replaces the provider catalog.
func (b *Backend) SetProviders(providers []map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers = providers
}

// SetOfferings replaces the offerings of one model.
func (b *Backend) SetOfferings(modelID string, offerings []map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.offerings[modelID] = offerings
}

// SetOnrampCredits changes the amount granted per onramp.
func (b *Backend) SetOnrampCredits(credits int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credits = credits
}

// AddUser registers an account directly.
func (b *Backend) AddUser(email, password string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(email, password)
}

// KeyCount returns how many keys the server holds for the user.
func (b *Backend) KeyCount(userID int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.keys[userID])
}

func (b *Backend) addUserLocked(email, password string) int {
	id := b.nextID
	b.nextID++
	b.users[email] = &user{id: id, email: email, password: password}
	return id
}

func (b *Backend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path

		b.mu.Lock()
		b.hits[route]++
		f, failing := b.failures[route]
		gate := b.gates[route]
		b.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		if failing {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authed(next func(http.ResponseWriter, *http.Request, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(CookieName)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
			return
		}
		b.mu.Lock()
		uid, ok := b.sessions[ck.Value]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
			return
		}
		next(w, r, uid)
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b *Backend) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Email == "" || c.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Email and password are required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[c.Email]; exists {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "User already exists"})
		return
	}
	id := b.addUserLocked(c.Email, c.Password)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "email": c.Email})
}

func (b *Backend) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request"})
		return
	}

	b.mu.Lock()
	u, ok := b.users[c.Email]
	if !ok || u.password != c.Password {
		b.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid credentials"})
		return
	}
	token := fmt.Sprintf("session-%d-%d", u.id, len(b.sessions)+1)
	b.sessions[token] = u.id
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"id": u.id, "email": u.email})
}

func (b *Backend) handleListKeys(w http.ResponseWriter, _ *http.Request, uid int) {
	b.mu.Lock()
	keys := append([]apiKey{}, b.keys[uid]...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"apiKeys": keys})
}

func (b *Backend) handleCreateKey(w http.ResponseWriter, r *http.Request, uid int) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Name is required"})
		return
	}

	b.mu.Lock()
	id := strconv.Itoa(b.nextID)
	b.nextID++
	key := apiKey{ID: id, Name: body.Name}
	b.keys[uid] = append(b.keys[uid], key)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     key.ID,
		"name":   key.Name,
		"apiKey": "sk-er-" + id + "-0123456789abcdef",
	})
}

func (b *Backend) handleDeleteKey(w http.ResponseWriter, r *http.Request, uid int) {
	id := r.PathValue("id")

	b.mu.Lock()
	defer b.mu.Unlock()
	keys := b.keys[uid]
	for i, k := range keys {
		if k.ID == id {
			b.keys[uid] = append(keys[:i:i], keys[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "API key not found"})
}

func (b *Backend) handleDisableKey(w http.ResponseWriter, r *http.Request, uid int) {
	var body struct {
		ID       json.RawMessage `json:"id"`
		Disabled bool            `json:"disabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid request"})
		return
	}
	var id string
	if err := json.Unmarshal(body.ID, &id); err != nil {
		id = string(body.ID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, k := range b.keys[uid] {
		if k.ID == id {
			b.keys[uid][i].Disabled = body.Disabled
			writeJSON(w, http.StatusOK, map[string]any{"id": k.ID, "disabled": body.Disabled})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "API key not found"})
}

func (b *Backend) handleModels(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"models": b.models})
}

func (b *Backend) handleProviders(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"providers": b.providers})
}

func (b *Backend) handleOfferings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	offerings, ok := b.offerings[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Model not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": offerings})
}

func (b *Backend) handleOnramp(w http.ResponseWriter, _ *http.Request, _ int) {
	b.mu.Lock()
	credits := b.credits
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"credits": credits})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
