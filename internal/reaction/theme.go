package reaction

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vinayprograms/agentcam/internal/event"
)

// Theme controls reaction durations, the typing-revert delay, the
// monitor content threshold, and the scene palette. A YAML file can
// override any subset; unset fields keep the defaults.
type Theme struct {
	Durations       map[string]int64  `yaml:"durations"`        // frames, keyed by event type
	DefaultDuration int64             `yaml:"default_duration"` // frames, for unlisted types
	TypingRevertMS  int               `yaml:"typing_revert_ms"` // wall-clock revert for the typing signal
	MinContentLen   int               `yaml:"min_content_len"`  // shortest payload worth showing on the monitor
	Palette         map[string]string `yaml:"palette"`          // scene color overrides, keyed by layer name
}

// DefaultTheme returns the built-in theme.
func DefaultTheme() Theme {
	return Theme{
		Durations: map[string]int64{
			string(event.TypeError):    80,
			string(event.TypeSpawn):    60,
			string(event.TypeComplete): 90,
			string(event.TypeThink):    50,
			string(event.TypeUser):     40,
		},
		DefaultDuration: 30,
		TypingRevertMS:  2500,
		MinContentLen:   5,
	}
}

// LoadTheme reads a YAML theme file and merges it over the defaults.
func LoadTheme(path string) (Theme, error) {
	theme := DefaultTheme()

	data, err := os.ReadFile(path)
	if err != nil {
		return theme, fmt.Errorf("failed to read theme: %w", err)
	}

	var override Theme
	if err := yaml.Unmarshal(data, &override); err != nil {
		return theme, fmt.Errorf("failed to parse theme: %w", err)
	}

	for k, v := range override.Durations {
		theme.Durations[k] = v
	}
	if override.DefaultDuration > 0 {
		theme.DefaultDuration = override.DefaultDuration
	}
	if override.TypingRevertMS > 0 {
		theme.TypingRevertMS = override.TypingRevertMS
	}
	if override.MinContentLen > 0 {
		theme.MinContentLen = override.MinContentLen
	}
	if len(override.Palette) > 0 {
		if theme.Palette == nil {
			theme.Palette = make(map[string]string)
		}
		for k, v := range override.Palette {
			theme.Palette[k] = v
		}
	}
	return theme, nil
}

// Duration returns the reaction duration in frames for an event type.
func (t Theme) Duration(typ event.Type) int64 {
	if d, ok := t.Durations[string(typ)]; ok {
		return d
	}
	return t.DefaultDuration
}

// TypingRevert returns the typing-signal revert delay.
func (t Theme) TypingRevert() time.Duration {
	return time.Duration(t.TypingRevertMS) * time.Millisecond
}
