package app

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/services"
)

func TestTickCmd(t *testing.T) {
	cmd := tickCmd(time.Millisecond)
	if cmd == nil {
		t.Fatal("tickCmd returned nil")
	}
	if _, ok := cmd().(TickMsg); !ok {
		t.Error("tickCmd should produce a TickMsg")
	}
}

func TestNotifyCmds(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) tea.Cmd
		want NotificationType
	}{
		{"Success", notifySuccessCmd, NotificationSuccess},
		{"Error", notifyErrorCmd, NotificationError},
		{"Warning", notifyWarningCmd, NotificationWarning},
		{"Info", notifyInfoCmd, NotificationInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.fn("msg")()

			addMsg, ok := msg.(AddNotificationMsg)
			if !ok {
				t.Fatalf("Expected AddNotificationMsg, got %T", msg)
			}
			if addMsg.Type != tt.want {
				t.Errorf("Type = %v, want %v", addMsg.Type, tt.want)
			}
			if addMsg.Message != "msg" {
				t.Errorf("Message = %q, want msg", addMsg.Message)
			}
			if addMsg.Duration <= 0 {
				t.Error("Notifications should expire")
			}
		})
	}
}

func TestClearNotificationCmd(t *testing.T) {
	msg := clearNotificationCmd("n1", time.Millisecond)()
	removeMsg, ok := msg.(RemoveNotificationMsg)
	if !ok {
		t.Fatalf("Expected RemoveNotificationMsg, got %T", msg)
	}
	if removeMsg.ID != "n1" {
		t.Errorf("ID = %q, want n1", removeMsg.ID)
	}
}

func TestWaitForServiceEventCmd(t *testing.T) {
	ch := make(chan services.ServiceEvent, 1)
	ch <- services.ErrorEvent{Service: "keys"}

	msg := waitForServiceEventCmd(ch)()
	eventMsg, ok := msg.(ServiceEventMsg)
	if !ok {
		t.Fatalf("Expected ServiceEventMsg, got %T", msg)
	}
	if e, ok := eventMsg.Event.(services.ErrorEvent); !ok || e.Service != "keys" {
		t.Errorf("Unexpected event %+v", eventMsg.Event)
	}

	close(ch)
	if msg := waitForServiceEventCmd(ch)(); msg != nil {
		t.Errorf("Closed channel should yield nil, got %T", msg)
	}
}

func TestCopyToClipboardCmd(t *testing.T) {
	orig := writeClipboard
	defer func() { writeClipboard = orig }()

	var copied string
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}

	msg := copyToClipboardCmd(CopyToClipboardMsg{Text: "sk-123", Label: "secret", KeyID: "7"})()
	result, ok := msg.(ClipboardResultMsg)
	if !ok {
		t.Fatalf("Expected ClipboardResultMsg, got %T", msg)
	}
	if copied != "sk-123" {
		t.Errorf("Copied %q, want sk-123", copied)
	}
	if result.Error != nil || result.KeyID != "7" || result.Label != "secret" {
		t.Errorf("Unexpected result %+v", result)
	}

	writeClipboard = func(string) error { return errors.New("no clipboard") }
	result = copyToClipboardCmd(CopyToClipboardMsg{Text: "x"})().(ClipboardResultMsg)
	if result.Error == nil {
		t.Error("Expected clipboard error to be reported")
	}
}

func TestSendMsg(t *testing.T) {
	if _, ok := sendMsg(SignOutMsg{})().(SignOutMsg); !ok {
		t.Error("sendMsg should yield the wrapped message")
	}
}
