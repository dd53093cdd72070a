package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vinayprograms/agentcam/internal/bookmark"
	"github.com/vinayprograms/agentcam/internal/event"
	"github.com/vinayprograms/agentcam/internal/logging"
	"github.com/vinayprograms/agentcam/internal/parser"
	"github.com/vinayprograms/agentcam/internal/reaction"
	"github.com/vinayprograms/agentcam/internal/timeline"
)

func sampleEvents() []event.Event {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return []event.Event{
		{Type: event.TypeUser, Timestamp: base, Content: "please fix the build"},
		{Type: event.TypeBash, Timestamp: base.Add(time.Second), Content: "go build ./..."},
		{Type: event.TypeError, Timestamp: base.Add(2 * time.Second), Content: "syntax error"},
		{Type: event.TypeComplete, Timestamp: base.Add(3 * time.Second), Content: "done"},
	}
}

func newReplayModel(t *testing.T) *Model {
	t.Helper()
	logger := logging.New()
	logger.SetLevel(logging.LevelError)

	rctx := reaction.NewContext(reaction.DefaultTheme())
	ctl := timeline.New(rctx, timeline.WithLogger(logger))
	eventLog := event.NewLog(sampleEvents())
	ctl.EnterReplay(eventLog, 1.0)

	return &Model{
		path:     "/sessions/test.jsonl",
		title:    "test",
		ctl:      ctl,
		rctx:     rctx,
		log:      logger,
		eventLog: eventLog,
		seed:     7,
	}
}

func press(m *Model, msg tea.KeyMsg) {
	m.Update(msg)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPlayPauseKey(t *testing.T) {
	m := newReplayModel(t)

	press(m, tea.KeyMsg{Type: tea.KeySpace})
	if !m.ctl.Playing() {
		t.Error("space should start playback")
	}
	press(m, tea.KeyMsg{Type: tea.KeySpace})
	if m.ctl.Playing() {
		t.Error("space should pause playback")
	}
}

func TestSeekKeys(t *testing.T) {
	m := newReplayModel(t)

	press(m, tea.KeyMsg{Type: tea.KeyRight})
	press(m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.ctl.Position(); got != 2 {
		t.Errorf("expected position 2, got %d", got)
	}
	press(m, tea.KeyMsg{Type: tea.KeyLeft})
	if got := m.ctl.Position(); got != 1 {
		t.Errorf("expected position 1, got %d", got)
	}

	// Seeking below zero clamps.
	press(m, tea.KeyMsg{Type: tea.KeyLeft})
	press(m, tea.KeyMsg{Type: tea.KeyLeft})
	if got := m.ctl.Position(); got != 0 {
		t.Errorf("expected clamp at 0, got %d", got)
	}

	// Jump keys move by ten, clamped to the end.
	press(m, tea.KeyMsg{Type: tea.KeyShiftRight})
	if got := m.ctl.Position(); got != 4 {
		t.Errorf("expected clamp at log end, got %d", got)
	}
	press(m, tea.KeyMsg{Type: tea.KeyShiftLeft})
	if got := m.ctl.Position(); got != 0 {
		t.Errorf("expected jump back to 0, got %d", got)
	}
}

func TestSpeedKeys(t *testing.T) {
	m := newReplayModel(t)

	press(m, runes("+"))
	if got := m.ctl.Speed(); got != 2.0 {
		t.Errorf("expected speed 2, got %g", got)
	}
	press(m, runes("-"))
	press(m, runes("-"))
	if got := m.ctl.Speed(); got != 0.5 {
		t.Errorf("expected speed 0.5, got %g", got)
	}

	for i := 0; i < 12; i++ {
		press(m, runes("+"))
	}
	if got := m.ctl.Speed(); got != maxSpeed {
		t.Errorf("expected speed capped at %g, got %g", maxSpeed, got)
	}
	for i := 0; i < 12; i++ {
		press(m, runes("-"))
	}
	if got := m.ctl.Speed(); got != minSpeed {
		t.Errorf("expected speed floored at %g, got %g", minSpeed, got)
	}
}

func TestRestartKey(t *testing.T) {
	m := newReplayModel(t)

	m.ctl.Seek(3)
	press(m, runes("0"))
	if got := m.ctl.Position(); got != 0 {
		t.Errorf("expected restart to position 0, got %d", got)
	}
}

func TestQuitSavesBookmark(t *testing.T) {
	m := newReplayModel(t)
	store, err := bookmark.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	m.bookmarks = store

	m.ctl.Seek(2)
	m.ctl.SetSpeed(4.0)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("quit should return a command")
	}

	bm := store.Get(m.path)
	if bm == nil {
		t.Fatal("expected a bookmark after quit")
	}
	if bm.Position != 2 || bm.Speed != 4.0 {
		t.Errorf("wrong bookmark: %+v", bm)
	}
}

func TestLiveQuitSkipsBookmark(t *testing.T) {
	m := newReplayModel(t)
	store, _ := bookmark.NewStore(t.TempDir())
	m.bookmarks = store
	m.live = true

	m.Update(runes("q"))
	if store.Get(m.path) != nil {
		t.Error("live mode should not write bookmarks")
	}
}

func TestFrameMsgAdvances(t *testing.T) {
	m := newReplayModel(t)
	m.Update(frameMsg(42))
	if m.frame != 42 {
		t.Errorf("expected frame 42, got %d", m.frame)
	}
}

func TestViewAfterResize(t *testing.T) {
	m := newReplayModel(t)

	if view := m.View(); !strings.Contains(view, "Loading") {
		t.Error("expected loading placeholder before first resize")
	}

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if !m.ready {
		t.Fatal("resize should mark the model ready")
	}
	view := m.View()
	if !strings.Contains(view, "test") {
		t.Error("view should carry the session title")
	}
	if !strings.Contains(view, "0/4") {
		t.Error("footer should show the timeline position")
	}
	// The feed separator spans the full width, below the scene.
	if strings.Count(view, "─") < 80 {
		t.Error("view should draw the feed separator rule")
	}
}

func TestFeedStopsAtPlayhead(t *testing.T) {
	m := newReplayModel(t)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})

	m.ctl.Seek(2)
	view := m.View()
	if !strings.Contains(view, "bash") {
		t.Error("feed should list dispatched events")
	}
	if strings.Contains(view, "syntax error") {
		t.Error("feed should not show events past the playhead")
	}
}

func TestFileChangeDeliversNewEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sess-9.jsonl")
	line1 := `{"type":"user","sessionId":"sess-9","timestamp":"2026-01-02T10:00:00Z","message":{"content":"hello"}}` + "\n"
	line2 := `{"type":"assistant","sessionId":"sess-9","requestId":"r1","timestamp":"2026-01-02T10:00:02Z","message":{"usage":{},"content":[{"type":"text","text":"hi there"}]}}` + "\n"
	if err := os.WriteFile(path, []byte(line1), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	logger := logging.New()
	logger.SetLevel(logging.LevelError)
	cache := parser.NewCache()
	session, err := cache.Parse(path)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	rctx := reaction.NewContext(reaction.DefaultTheme())
	ctl := timeline.New(rctx, timeline.WithLogger(logger))
	ctl.EnterLive(event.NewLog(session.Events))

	m := &Model{path: path, live: true, cache: cache, ctl: ctl, rctx: rctx, log: logger}

	if err := os.WriteFile(path, []byte(line1+line2), 0644); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	// The parse cache keys on mtime; make sure it moved.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}

	m.Update(fileChangedMsg{})
	if got := m.ctl.Length(); got != 2 {
		t.Errorf("expected 2 events after reload, got %d", got)
	}
	if got := m.ctl.Position(); got != 2 {
		t.Errorf("live delivery should advance position to 2, got %d", got)
	}
}
