package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	tmpDir := isolate(t)
	path := filepath.Join(tmpDir, ".env")

	if err := os.WriteFile(path, []byte("EASYROUTER_API_URL=http://one:1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	reloaded := make(chan *Config, 4)
	w, err := Watch(path, func(cfg *Config) { reloaded <- cfg })
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("EASYROUTER_API_URL=http://two:2\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.APIURL != "http://two:2" {
			t.Errorf("APIURL = %q, want http://two:2", cfg.APIURL)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	tmpDir := isolate(t)
	path := filepath.Join(tmpDir, ".env")

	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	reloaded := make(chan *Config, 1)
	w, err := Watch(path, func(cfg *Config) { reloaded <- cfg })
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(tmpDir, "other.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("unrelated file should not trigger a reload")
	case <-time.After(4 * debounceInterval):
	}
}

func TestWatch_NoPath(t *testing.T) {
	if _, err := Watch("", func(*Config) {}); err == nil {
		t.Error("Watch(\"\") should fail")
	}
}

func TestWatcher_CloseIdempotent(t *testing.T) {
	tmpDir := isolate(t)
	path := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	w, err := Watch(path, func(*Config) {})
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() should be a no-op, got %v", err)
	}
}
