// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"strconv"
	"sync"
	"time"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/apikeys"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/catalog"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/credits"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Message   string
	Duration  time.Duration
	Type      NotificationType
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// Resource names used with SetLoading.
const (
	ResourceSession  = "session"
	ResourceKeys     = "keys"
	ResourceCatalog  = "catalog"
	ResourceCredits  = "credits"
	ResourceRequests = "requests"
)

// State is the view model shared by every tab. Services own the data; State
// only holds the latest snapshots they published.
type State struct {
	mu sync.RWMutex

	session   models.Session
	keys      apikeys.Snapshot
	catalog   catalog.Snapshot
	offerings map[models.ID][]models.ModelProviderOffering
	credits   credits.Snapshot
	stats     *models.RequestStats
	recent    []models.RequestLog
	apiURL    string

	loading     map[string]bool
	lastUpdated time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		offerings:     make(map[models.ID][]models.ModelProviderOffering),
		loading:       make(map[string]bool),
		notifications: make([]Notification, 0),
	}
}

// SetLoading sets the loading state for a specific resource.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loading {
		s.loading[resource] = true
		return
	}
	delete(s.loading, resource)
}

// IsLoading reports whether resource is loading.
func (s *State) IsLoading(resource string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[resource]
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.loading) > 0
}

// SetSession stores the latest session snapshot.
func (s *State) SetSession(session models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

// Session returns the latest session snapshot.
func (s *State) Session() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// SetKeys stores the latest API key snapshot.
func (s *State) SetKeys(snap apikeys.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = snap
	s.lastUpdated = time.Now()
}

// Keys returns a copy of the cached API keys.
func (s *State) Keys() []models.APIKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.APIKey(nil), s.keys.Keys...)
}

// KeysState returns the load state of the API keys.
func (s *State) KeysState() models.LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys.State
}

// SetCatalog stores the latest catalog snapshot.
func (s *State) SetCatalog(snap catalog.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = snap
	s.lastUpdated = time.Now()
}

// Catalog returns the latest catalog snapshot.
func (s *State) Catalog() catalog.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.Snapshot{
		State:     s.catalog.State,
		Models:    append([]models.Model(nil), s.catalog.Models...),
		Providers: append([]models.Provider(nil), s.catalog.Providers...),
	}
}

// ProviderName resolves a provider id against the latest catalog snapshot.
func (s *State) ProviderName(id models.ID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.catalog.Providers {
		if p.ID == id && p.Name != "" {
			return p.Name
		}
	}
	return "Provider " + id.String()
}

// SetOfferings stores the offerings of one model.
func (s *State) SetOfferings(modelID models.ID, offerings []models.ModelProviderOffering) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offerings[modelID] = offerings
}

// Offerings returns the offerings of one model, if fetched.
func (s *State) Offerings(modelID models.ID) ([]models.ModelProviderOffering, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offerings[modelID]
	return o, ok
}

// SetCredits stores the latest credit snapshot.
func (s *State) SetCredits(snap credits.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits = snap
	s.lastUpdated = time.Now()
}

// Credits returns the latest credit snapshot.
func (s *State) Credits() credits.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return credits.Snapshot{
		State:   s.credits.State,
		Ledger:  append([]models.LedgerEntry(nil), s.credits.Ledger...),
		Balance: s.credits.Balance,
	}
}

// SetRequestStats stores request log aggregates and the newest rows.
func (s *State) SetRequestStats(stats *models.RequestStats, recent []models.RequestLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
	s.recent = recent
}

// RequestStats returns the last loaded aggregates, or nil.
func (s *State) RequestStats() *models.RequestStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// RecentRequests returns the last loaded request log rows.
func (s *State) RecentRequests() []models.RequestLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RequestLog(nil), s.recent...)
}

// SetAPIURL records the backend the services talk to.
func (s *State) SetAPIURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiURL = url
}

// APIURL returns the backend base URL.
func (s *State) APIURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiURL
}

// ResetResources drops every per-user snapshot. It is called when the
// service generation changes.
func (s *State) ResetResources() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = apikeys.Snapshot{}
	s.catalog = catalog.Snapshot{}
	s.offerings = make(map[models.ID][]models.ModelProviderOffering)
	s.credits = credits.Snapshot{}
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := "n" + strconv.Itoa(s.notificationSeq)

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// LastUpdated returns the last time a resource snapshot arrived.
func (s *State) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}
