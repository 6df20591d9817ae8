package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nexus", "config.json")
	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	cfg := m.Get()
	if cfg.Session.TTL() != time.Hour {
		t.Errorf("expected 1h TTL, got %v", cfg.Session.TTL())
	}
	if cfg.Preview.Timeout() != 5*time.Second {
		t.Errorf("expected 5s preview timeout, got %v", cfg.Preview.Timeout())
	}
	if !cfg.Browser.DirectoryAccess {
		t.Error("directory access should default to on")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"session":{"ttlMinutes":5}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := m.Get()
	if cfg.Session.TTL() != 5*time.Minute {
		t.Errorf("expected 5m TTL, got %v", cfg.Session.TTL())
	}
	if cfg.Preferences.ViewMode != "grid" {
		t.Errorf("missing keys should keep defaults, got view mode %q", cfg.Preferences.ViewMode)
	}
}

func TestLoad_ParseErrorFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load should not fail on parse errors: %v", err)
	}
	if m.ParseError() == nil {
		t.Error("expected ParseError to be set")
	}
	if m.Get().Preview.MaxPixels != DefaultConfig().Preview.MaxPixels {
		t.Error("expected defaults after parse error")
	}
}

func TestZeroDurationsUseDefaults(t *testing.T) {
	if (SessionConfig{}).TTL() != time.Hour {
		t.Error("zero TTL should mean one hour")
	}
	if (PreviewConfig{}).Timeout() != 5*time.Second {
		t.Error("zero timeout should mean five seconds")
	}
}

func TestGenerateConfig_BacksUpExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"session":{"ttlMinutes":1}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	backup, err := GenerateConfig(path)
	if err != nil {
		t.Fatalf("GenerateConfig: %v", err)
	}
	if backup == "" {
		t.Fatal("expected a backup path")
	}
	data, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(data) != `{"session":{"ttlMinutes":1}}` {
		t.Errorf("backup content mismatch: %s", data)
	}
}
