package app

import (
	"testing"
	"time"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/apikeys"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/catalog"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/credits"
)

func TestNewState(t *testing.T) {
	s := NewState()
	if s == nil {
		t.Fatal("NewState returned nil")
	}
	if len(s.Keys()) != 0 {
		t.Error("Keys should be empty")
	}
	if s.Session().IsAuthenticated() {
		t.Error("New state should be anonymous")
	}
	if s.AnyLoading() {
		t.Error("Nothing should be loading")
	}
}

func TestState_SetLoading(t *testing.T) {
	s := NewState()

	s.SetLoading(ResourceKeys, true)
	if !s.IsLoading(ResourceKeys) {
		t.Error("Keys loading should be true")
	}
	if !s.AnyLoading() {
		t.Error("AnyLoading should be true")
	}

	s.SetLoading(ResourceCatalog, true)
	s.SetLoading(ResourceKeys, false)
	if !s.AnyLoading() {
		t.Error("AnyLoading should be true (catalog still loading)")
	}

	s.SetLoading(ResourceCatalog, false)
	if s.AnyLoading() {
		t.Error("AnyLoading should be false")
	}
}

func TestState_Keys(t *testing.T) {
	s := NewState()

	s.SetKeys(apikeys.Snapshot{
		State: models.LoadState{Loaded: true},
		Keys:  []models.APIKey{{ID: "1", Name: "prod"}, {ID: "2", Name: "dev", Disabled: true}},
	})

	keys := s.Keys()
	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys, got %d", len(keys))
	}
	if !s.KeysState().Loaded {
		t.Error("Keys should be marked loaded")
	}
	if s.LastUpdated().IsZero() {
		t.Error("LastUpdated should be set")
	}

	keys[0].Name = "mutated"
	if s.Keys()[0].Name != "prod" {
		t.Error("Keys should return a copy")
	}
}

func TestState_CatalogAndOfferings(t *testing.T) {
	s := NewState()
	s.SetCatalog(catalog.Snapshot{
		Models:    []models.Model{{ID: "gpt-4o", Name: "GPT-4o"}},
		Providers: []models.Provider{{ID: "openai", Name: "OpenAI"}},
	})

	if got := s.ProviderName("openai"); got != "OpenAI" {
		t.Errorf("ProviderName(openai) = %q, want OpenAI", got)
	}
	if got := s.ProviderName("7"); got != "Provider 7" {
		t.Errorf("ProviderName(7) = %q, want fallback", got)
	}

	if _, ok := s.Offerings("gpt-4o"); ok {
		t.Error("Offerings should not be fetched yet")
	}
	s.SetOfferings("gpt-4o", []models.ModelProviderOffering{{ProviderID: "openai"}})
	offerings, ok := s.Offerings("gpt-4o")
	if !ok || len(offerings) != 1 {
		t.Errorf("Expected 1 cached offering, got %v (ok=%v)", offerings, ok)
	}
}

func TestState_ResetResources(t *testing.T) {
	s := NewState()
	s.SetKeys(apikeys.Snapshot{Keys: []models.APIKey{{ID: "1"}}})
	s.SetCatalog(catalog.Snapshot{Models: []models.Model{{ID: "m"}}})
	s.SetOfferings("m", []models.ModelProviderOffering{{ProviderID: "p"}})
	s.SetCredits(credits.Snapshot{Balance: models.CreditBalance{Amount: 50}})

	s.ResetResources()

	if len(s.Keys()) != 0 {
		t.Error("Keys should be cleared")
	}
	if len(s.Catalog().Models) != 0 {
		t.Error("Catalog should be cleared")
	}
	if _, ok := s.Offerings("m"); ok {
		t.Error("Offerings should be cleared")
	}
	if s.Credits().Balance.Amount != 0 {
		t.Error("Balance should be cleared")
	}
}

func TestState_RequestStats(t *testing.T) {
	s := NewState()
	if s.RequestStats() != nil {
		t.Error("Stats should be nil before loading")
	}

	s.SetRequestStats(&models.RequestStats{TotalRequests: 3}, []models.RequestLog{{Route: "/api-key/"}})
	if s.RequestStats().TotalRequests != 3 {
		t.Error("Stats not stored")
	}
	if len(s.RecentRequests()) != 1 {
		t.Error("Recent requests not stored")
	}
}

func TestState_Notifications(t *testing.T) {
	s := NewState()

	id := s.AddNotification(NotificationSuccess, "Test", time.Minute)
	if id == "" {
		t.Error("AddNotification returned empty ID")
	}

	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].Message != "Test" {
		t.Errorf("Message = %q, want Test", notifs[0].Message)
	}

	s.RemoveNotification(id)
	if len(s.GetNotifications()) != 0 {
		t.Error("Notification should be removed")
	}
}

func TestState_NotificationLimit(t *testing.T) {
	s := NewState()
	for range maxNotifications + 5 {
		s.AddNotification(NotificationInfo, "n", time.Minute)
	}
	if got := len(s.GetNotifications()); got != maxNotifications {
		t.Errorf("Expected %d notifications, got %d", maxNotifications, got)
	}
}

func TestState_ClearExpiredNotifications(t *testing.T) {
	s := NewState()

	s.AddNotification(NotificationInfo, "Expired", time.Nanosecond)
	s.AddNotification(NotificationInfo, "Active", time.Hour)
	s.AddNotification(NotificationInfo, "Permanent", 0)

	time.Sleep(time.Millisecond)
	s.ClearExpiredNotifications()

	notifs := s.GetNotifications()
	if len(notifs) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(notifs))
	}
	for _, n := range notifs {
		if n.Message == "Expired" {
			t.Error("Expired notification was not removed")
		}
	}
}

func TestState_LoadingNotification(t *testing.T) {
	s := NewState()

	s.SetLoadingNotification("Loading...")
	notifs := s.GetNotifications()
	if len(notifs) != 1 || notifs[0].ID != LoadingNotificationID {
		t.Fatalf("Expected loading notification, got %+v", notifs)
	}

	s.SetLoadingNotification("Still loading")
	notifs = s.GetNotifications()
	if len(notifs) != 1 || notifs[0].Message != "Still loading" {
		t.Errorf("Loading notification should be updated in place, got %+v", notifs)
	}

	s.ClearLoadingNotification()
	if len(s.GetNotifications()) != 0 {
		t.Error("Loading notification should be cleared")
	}
}

func TestNotificationType_String(t *testing.T) {
	tests := []struct {
		want string
		typ  NotificationType
	}{
		{"success", NotificationSuccess},
		{"error", NotificationError},
		{"warning", NotificationWarning},
		{"info", NotificationInfo},
		{"loading", NotificationLoading},
		{"unknown", NotificationType(99)},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("NotificationType(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
