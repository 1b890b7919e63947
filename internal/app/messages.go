package app

import (
	"time"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services/session"
)

// TickMsg is sent periodically to trigger state refresh.
type TickMsg struct {
	Time time.Time
}

// StartLoadingMsg signals that a resource is starting to load.
type StartLoadingMsg struct {
	Resource string
}

// StopLoadingMsg signals that a resource has finished loading.
type StopLoadingMsg struct {
	Resource string
}

// RefreshMsg requests a reload of the given resource.
type RefreshMsg struct {
	Resource string // ResourceKeys, ResourceCatalog, ResourceCredits, ResourceRequests or "all"
}

// SignInMsg requests a sign-in.
type SignInMsg struct {
	Email    string
	Password string
}

// SignUpMsg requests an account creation.
type SignUpMsg struct {
	Email    string
	Password string
}

// SignOutMsg requests a local sign-out.
type SignOutMsg struct{}

// AuthResultMsg carries the outcome of a sign-in or sign-up.
type AuthResultMsg struct {
	Email  string
	Result session.Result
	SignUp bool
}

// KeysLoadedMsg carries the outcome of an API key list.
type KeysLoadedMsg struct {
	Err  error
	Keys []models.APIKey
}

// CreateKeyMsg requests a new API key.
type CreateKeyMsg struct {
	Name string
}

// KeyCreatedMsg carries a newly created key, one-time secret included.
type KeyCreatedMsg struct {
	Err error
	Key models.APIKey
}

// DeleteKeyMsg requests the removal of an API key.
type DeleteKeyMsg struct {
	ID   models.ID
	Name string
}

// KeyDeletedMsg carries the outcome of a removal.
type KeyDeletedMsg struct {
	Err  error
	ID   models.ID
	Name string
}

// ToggleKeyMsg requests flipping the disabled flag of a key.
type ToggleKeyMsg struct {
	ID models.ID
}

// KeyUpdatedMsg carries the acknowledged key after a toggle.
type KeyUpdatedMsg struct {
	Err error
	Key models.APIKey
}

// ClearSecretMsg forgets the one-time secret of a key.
type ClearSecretMsg struct {
	ID models.ID
}

// CatalogLoadedMsg signals that the catalog list finished.
type CatalogLoadedMsg struct {
	Err error
}

// LoadOfferingsMsg requests the offerings of one model.
type LoadOfferingsMsg struct {
	ModelID models.ID
}

// OfferingsLoadedMsg carries the offerings of one model.
type OfferingsLoadedMsg struct {
	Err       error
	ModelID   models.ID
	Offerings []models.ModelProviderOffering
}

// OnrampMsg requests a credit onramp.
type OnrampMsg struct{}

// OnrampResultMsg carries the new ledger entry.
type OnrampResultMsg struct {
	Err   error
	Entry models.LedgerEntry
}

// RequestStatsLoadedMsg carries request log aggregates.
type RequestStatsLoadedMsg struct {
	Err    error
	Stats  *models.RequestStats
	Recent []models.RequestLog
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Message  string
	Duration time.Duration
	Type     NotificationType
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

// CopyToClipboardMsg requests copying text to clipboard. KeyID, when set,
// names a key whose one-time secret is cleared after a successful copy.
type CopyToClipboardMsg struct {
	Text  string
	Label string
	KeyID models.ID
}

// ClipboardResultMsg contains the result of a clipboard operation.
type ClipboardResultMsg struct {
	Error error
	Label string
	KeyID models.ID
}
