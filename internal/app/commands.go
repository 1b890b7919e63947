package app

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second

	// commandTimeout bounds every backend call started from the UI.
	commandTimeout = 30 * time.Second

	recentRequestsLimit = 20
)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// loadResourcesCmd loads everything an authenticated user sees.
func loadResourcesCmd(mgr *services.Manager) tea.Cmd {
	return tea.Batch(
		loadKeysCmd(mgr),
		loadCatalogCmd(mgr),
		loadCreditsCmd(mgr),
		loadRequestStatsCmd(mgr),
	)
}

func signInCmd(mgr *services.Manager, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		return AuthResultMsg{Email: email, Result: mgr.SignIn(ctx, email, password)}
	}
}

func signUpCmd(mgr *services.Manager, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		return AuthResultMsg{Email: email, Result: mgr.SignUp(ctx, email, password), SignUp: true}
	}
}

func loadKeysCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		keys, err := mgr.Keys().List(ctx)
		return KeysLoadedMsg{Keys: keys, Err: err}
	}
}

func createKeyCmd(mgr *services.Manager, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		key, err := mgr.Keys().Create(ctx, name)
		return KeyCreatedMsg{Key: key, Err: err}
	}
}

func deleteKeyCmd(mgr *services.Manager, id models.ID, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		err := mgr.Keys().Remove(ctx, id)
		return KeyDeletedMsg{ID: id, Name: name, Err: err}
	}
}

func toggleKeyCmd(mgr *services.Manager, id models.ID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		key, err := mgr.Keys().Toggle(ctx, id)
		return KeyUpdatedMsg{Key: key, Err: err}
	}
}

func loadCatalogCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		_, err := mgr.Catalog().List(ctx)
		return CatalogLoadedMsg{Err: err}
	}
}

func loadOfferingsCmd(mgr *services.Manager, modelID models.ID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		offerings, err := mgr.Catalog().ProvidersForModel(ctx, modelID)
		return OfferingsLoadedMsg{ModelID: modelID, Offerings: offerings, Err: err}
	}
}

func loadCreditsCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		// Load failures are reported through the credits ErrorEvent.
		_, _ = mgr.Credits().Load(ctx)
		return StopLoadingMsg{Resource: ResourceCredits}
	}
}

func onrampCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		entry, err := mgr.Credits().Onramp(ctx)
		return OnrampResultMsg{Entry: entry, Err: err}
	}
}

func loadRequestStatsCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		stats, err := mgr.RequestStats(ctx)
		if err != nil {
			return RequestStatsLoadedMsg{Err: err}
		}
		recent, err := mgr.RecentRequests(ctx, recentRequestsLimit)
		return RequestStatsLoadedMsg{Stats: stats, Recent: recent, Err: err}
	}
}

func copyToClipboardCmd(msg CopyToClipboardMsg) tea.Cmd {
	return func() tea.Msg {
		err := writeClipboard(msg.Text)
		return ClipboardResultMsg{Label: msg.Label, KeyID: msg.KeyID, Error: err}
	}
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationSuccess,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationError,
			Message:  message,
			Duration: LongNotificationDuration,
		}
	}
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationWarning,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationInfo,
			Message:  message,
			Duration: QuickNotificationDuration,
		}
	}
}

func sendMsg(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
