package reaction

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vinayprograms/agentcam/internal/event"
)

func TestDurationTable(t *testing.T) {
	theme := DefaultTheme()

	cases := []struct {
		typ  event.Type
		want int64
	}{
		{event.TypeError, 80},
		{event.TypeSpawn, 60},
		{event.TypeComplete, 90},
		{event.TypeThink, 50},
		{event.TypeUser, 40},
		{event.TypeBash, 30},
		{event.Type("mystery"), 30},
	}
	for _, tc := range cases {
		if got := theme.Duration(tc.typ); got != tc.want {
			t.Errorf("Duration(%s) = %d, want %d", tc.typ, got, tc.want)
		}
	}
}

func TestDispatchBindsOnFirstObserve(t *testing.T) {
	ctx := NewContext(DefaultTheme())
	ctx.Dispatch(event.Event{Type: event.TypeSpawn})

	snap := ctx.Observe(100)
	if snap.Reaction == nil {
		t.Fatal("expected an active reaction")
	}
	if snap.Reaction.StartFrame != 100 {
		t.Errorf("expected start frame bound to 100, got %d", snap.Reaction.StartFrame)
	}
	if snap.Reaction.Duration != 60 {
		t.Errorf("expected spawn duration 60, got %d", snap.Reaction.Duration)
	}

	// The binding survives later observations.
	snap = ctx.Observe(120)
	if snap.Reaction == nil || snap.Reaction.StartFrame != 100 {
		t.Error("start frame should stay bound to the first observed frame")
	}
}

func TestReactionExpires(t *testing.T) {
	ctx := NewContext(DefaultTheme())
	ctx.Dispatch(event.Event{Type: event.TypeBash})

	ctx.Observe(10) // binds start = 10, duration 30
	if snap := ctx.Observe(39); snap.Reaction == nil {
		t.Error("reaction should still be active at frame 39")
	}
	if snap := ctx.Observe(40); snap.Reaction != nil {
		t.Error("reaction should have expired at frame 40")
	}
	// Stays cleared.
	if snap := ctx.Observe(41); snap.Reaction != nil {
		t.Error("expired reaction must not come back")
	}
}

func TestAtMostOneReaction(t *testing.T) {
	ctx := NewContext(DefaultTheme())
	ctx.Dispatch(event.Event{Type: event.TypeError})
	ctx.Observe(0)

	// A new event replaces the active reaction, it does not queue.
	ctx.Dispatch(event.Event{Type: event.TypeComplete})
	snap := ctx.Observe(5)
	if snap.Reaction == nil {
		t.Fatal("expected an active reaction")
	}
	if snap.Reaction.Type != event.TypeComplete {
		t.Errorf("expected the new reaction to win, got %s", snap.Reaction.Type)
	}
	if snap.Reaction.StartFrame != 5 {
		t.Errorf("replacement reaction should rebind, got start %d", snap.Reaction.StartFrame)
	}
}

func TestMonitorContentThreshold(t *testing.T) {
	ctx := NewContext(DefaultTheme())

	ctx.Dispatch(event.Event{Type: event.TypeBash, Content: "ls"})
	if snap := ctx.Observe(0); snap.Monitor.Content != "" {
		t.Error("short content should not reach the monitor")
	}

	ctx.Dispatch(event.Event{Type: event.TypeBash, Content: "make test"})
	snap := ctx.Observe(1)
	if snap.Monitor.Content != "make test" {
		t.Errorf("expected monitor content, got %q", snap.Monitor.Content)
	}
	if snap.Monitor.Source != event.TypeBash {
		t.Errorf("expected monitor source bash, got %s", snap.Monitor.Source)
	}

	// Most recent wins.
	ctx.Dispatch(event.Event{Type: event.TypeThink, Content: "planning next step"})
	if snap := ctx.Observe(2); snap.Monitor.Source != event.TypeThink {
		t.Error("newer qualifying content should overwrite the monitor")
	}

	// Non-qualifying events leave the buffer alone.
	ctx.Dispatch(event.Event{Type: event.TypeBash})
	if snap := ctx.Observe(3); snap.Monitor.Content != "planning next step" {
		t.Error("events without content must not clear the monitor")
	}
}

func TestTypingSignal(t *testing.T) {
	theme := DefaultTheme()
	theme.TypingRevertMS = 20
	ctx := NewContext(theme)

	cases := []struct {
		typ  event.Type
		want Speed
	}{
		{event.TypeBash, SpeedFast},
		{event.TypeToolCall, SpeedFast},
		{event.TypeFileCreate, SpeedFast},
		{event.TypeFileUpdate, SpeedFast},
		{event.TypeThink, SpeedSlow},
		{event.TypeError, SpeedFrozen},
	}
	for _, tc := range cases {
		ctx.Dispatch(event.Event{Type: tc.typ})
		if got := ctx.Observe(0).Typing; got != tc.want {
			t.Errorf("typing after %s = %s, want %s", tc.typ, got, tc.want)
		}
	}

	// Neutral types do not disturb the current signal.
	ctx.Dispatch(event.Event{Type: event.TypeError})
	ctx.Dispatch(event.Event{Type: event.TypeText})
	if got := ctx.Observe(0).Typing; got != SpeedFrozen {
		t.Errorf("text should not change typing, got %s", got)
	}

	// Auto-revert is wall-clock based.
	deadline := time.Now().Add(time.Second)
	for ctx.Observe(0).Typing != SpeedNormal {
		if time.Now().After(deadline) {
			t.Fatal("typing signal never reverted to normal")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestResetClearsEverything(t *testing.T) {
	ctx := NewContext(DefaultTheme())
	ctx.Dispatch(event.Event{Type: event.TypeError, Content: "stack trace here"})
	ctx.Observe(0)

	ctx.Reset()

	snap := ctx.Observe(10)
	if snap.Reaction != nil {
		t.Error("reset should clear the active reaction")
	}
	if snap.Monitor.Content != "" {
		t.Error("reset should clear the monitor buffer")
	}
	if snap.Typing != SpeedNormal {
		t.Errorf("reset should restore normal typing, got %s", snap.Typing)
	}
}

func TestResetCancelsRevertTimer(t *testing.T) {
	theme := DefaultTheme()
	theme.TypingRevertMS = 10
	ctx := NewContext(theme)

	ctx.Dispatch(event.Event{Type: event.TypeError})
	ctx.Reset()
	ctx.Dispatch(event.Event{Type: event.TypeThink})

	// The pre-reset timer must not revert the post-reset signal early;
	// only the new timer may.
	if got := ctx.Observe(0).Typing; got != SpeedSlow {
		t.Errorf("expected slow after re-dispatch, got %s", got)
	}
}

func TestLoadTheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.yaml")

	content := `
durations:
  error: 120
typing_revert_ms: 500
palette:
  desk: "#8b5a2b"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write theme: %v", err)
	}

	theme, err := LoadTheme(path)
	if err != nil {
		t.Fatalf("LoadTheme failed: %v", err)
	}

	if theme.Duration(event.TypeError) != 120 {
		t.Errorf("expected overridden error duration 120, got %d", theme.Duration(event.TypeError))
	}
	if theme.Duration(event.TypeSpawn) != 60 {
		t.Errorf("unlisted types keep defaults, got %d", theme.Duration(event.TypeSpawn))
	}
	if theme.TypingRevert() != 500*time.Millisecond {
		t.Errorf("expected revert 500ms, got %v", theme.TypingRevert())
	}
	if theme.Palette["desk"] != "#8b5a2b" {
		t.Errorf("expected palette override, got %q", theme.Palette["desk"])
	}
}

func TestLoadThemeMissingFile(t *testing.T) {
	theme, err := LoadTheme(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing theme file")
	}
	// Defaults still come back usable.
	if theme.DefaultDuration != 30 {
		t.Errorf("expected default duration 30, got %d", theme.DefaultDuration)
	}
}
