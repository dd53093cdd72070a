// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the agentcam configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Scanner   ScannerConfig   `toml:"scanner"`
	Animation AnimationConfig `toml:"animation"`
	Replay    ReplayConfig    `toml:"replay"`
	Theme     ThemeConfig     `toml:"theme"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Notify    NotifyConfig    `toml:"notify"`
	Storage   StorageConfig   `toml:"storage"`
}

// ServerConfig contains web dashboard settings.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Public      bool   `toml:"public"`       // Redact secrets and paths for screen sharing
	OpenBrowser bool   `toml:"open_browser"` // Open the dashboard on startup
}

// ScannerConfig contains transcript discovery settings.
type ScannerConfig struct {
	Paths        []string `toml:"paths"`         // Extra transcript directories beyond the defaults
	ActiveWindow string   `toml:"active_window"` // Recent-mtime window that marks a session active (default "120s")
}

// AnimationConfig contains scene rendering settings.
type AnimationConfig struct {
	FPS    int `toml:"fps"`    // Logical redraw rate (default 15)
	Width  int `toml:"width"`  // Scene grid width in cells
	Height int `toml:"height"` // Scene grid height in cells
}

// ReplayConfig contains timeline playback settings.
type ReplayConfig struct {
	Speed      float64 `toml:"speed"`        // Initial playback speed multiplier
	MinDelayMS int     `toml:"min_delay_ms"` // Floor between consecutive dispatches
	CapGapMS   int     `toml:"cap_gap_ms"`   // Ceiling on a single inter-event gap
}

// ThemeConfig points at an optional YAML theme override file.
type ThemeConfig struct {
	Path string `toml:"path"`
}

// TelemetryConfig contains telemetry settings.
type TelemetryConfig struct {
	Enabled  bool              `toml:"enabled"`
	Endpoint string            `toml:"endpoint"` // OTLP endpoint (e.g., localhost:4317)
	Insecure bool              `toml:"insecure"` // Disable TLS (default false)
	Headers  map[string]string `toml:"headers"`  // Auth headers (e.g., DD-API-KEY, x-honeycomb-team)
}

// NotifyConfig contains event publishing settings.
type NotifyConfig struct {
	NATSURL string `toml:"nats_url"` // Publish dispatched events to this NATS server when set
}

// StorageConfig contains persistent storage settings.
type StorageConfig struct {
	Path string `toml:"path"` // Base directory for bookmarks and cached state
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8787,
			OpenBrowser: true,
		},
		Scanner: ScannerConfig{
			ActiveWindow: "120s",
		},
		Animation: AnimationConfig{
			FPS:    15,
			Width:  64,
			Height: 24,
		},
		Replay: ReplayConfig{
			Speed:      1.0,
			MinDelayMS: 30,
			CapGapMS:   5000,
		},
		Storage: StorageConfig{
			Path: "~/.local/agentcam",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from agentcam.toml in the current directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	return LoadFile(filepath.Join(cwd, "agentcam.toml"))
}

// MinDelay returns the dispatch floor as a duration.
func (c *Config) MinDelay() time.Duration {
	return time.Duration(c.Replay.MinDelayMS) * time.Millisecond
}

// CapGap returns the inter-event gap ceiling as a duration.
func (c *Config) CapGap() time.Duration {
	return time.Duration(c.Replay.CapGapMS) * time.Millisecond
}

// ActiveWindow returns the scanner's active-session window. Invalid or
// empty values fall back to the default.
func (c *Config) ActiveWindow() time.Duration {
	d, err := time.ParseDuration(c.Scanner.ActiveWindow)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// StoragePath returns the storage directory with ~ expanded.
func (c *Config) StoragePath() string {
	return expandPath(c.Storage.Path)
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "~" || len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
