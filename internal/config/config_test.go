package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := New()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8787 {
		t.Errorf("expected default port 8787, got %d", cfg.Server.Port)
	}
	if cfg.Replay.Speed != 1.0 {
		t.Errorf("expected default speed 1.0, got %f", cfg.Replay.Speed)
	}
	if cfg.MinDelay() != 30*time.Millisecond {
		t.Errorf("expected min delay 30ms, got %v", cfg.MinDelay())
	}
	if cfg.CapGap() != 5*time.Second {
		t.Errorf("expected cap gap 5s, got %v", cfg.CapGap())
	}
	if cfg.Animation.FPS != 15 {
		t.Errorf("expected default fps 15, got %d", cfg.Animation.FPS)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentcam.toml")

	content := `
[server]
host = "0.0.0.0"
port = 9000
public = true

[replay]
speed = 2.0
min_delay_ms = 50

[scanner]
paths = ["/tmp/sessions"]
active_window = "30s"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if !cfg.Server.Public {
		t.Error("expected public mode enabled")
	}
	if cfg.Replay.Speed != 2.0 {
		t.Errorf("expected speed 2.0, got %f", cfg.Replay.Speed)
	}
	if cfg.MinDelay() != 50*time.Millisecond {
		t.Errorf("expected min delay 50ms, got %v", cfg.MinDelay())
	}
	// Unset sections keep defaults.
	if cfg.Replay.CapGapMS != 5000 {
		t.Errorf("expected cap gap default 5000, got %d", cfg.Replay.CapGapMS)
	}
	if cfg.ActiveWindow() != 30*time.Second {
		t.Errorf("expected active window 30s, got %v", cfg.ActiveWindow())
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestActiveWindowFallback(t *testing.T) {
	cfg := New()
	cfg.Scanner.ActiveWindow = "not-a-duration"
	if cfg.ActiveWindow() != 120*time.Second {
		t.Errorf("expected fallback 120s, got %v", cfg.ActiveWindow())
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got := expandPath("~/x/y")
	want := filepath.Join(home, "x/y")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	if expandPath("/abs/path") != "/abs/path" {
		t.Error("absolute path should pass through unchanged")
	}
}
