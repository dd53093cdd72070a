package timeline

import (
	"sync"
	"testing"
	"time"

	"github.com/vinayprograms/agentcam/internal/event"
	"github.com/vinayprograms/agentcam/internal/notify"
	"github.com/vinayprograms/agentcam/internal/reaction"
)

// recorder captures published events for inspection. The controller
// publishes under its own lock, so the recorder keeps its own.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(ev event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Type, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func ts(seconds float64) time.Time {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(seconds * float64(time.Second)))
}

// sampleLog is the scheduling scenario log: bash t=0, file_create
// t=1.2, error t=1.3, complete t=6.0.
func sampleLog() *event.Log {
	return event.NewLog([]event.Event{
		{Type: event.TypeBash, Timestamp: ts(0), Content: "running build"},
		{Type: event.TypeFileCreate, Timestamp: ts(1.2), Content: "main.go created"},
		{Type: event.TypeError, Timestamp: ts(1.3), Content: "compile failed"},
		{Type: event.TypeComplete, Timestamp: ts(6.0), Content: "done anyway"},
	})
}

func newReplay(t *testing.T, log *event.Log, opts ...Option) (*Controller, *reaction.Context) {
	t.Helper()
	rctx := reaction.NewContext(reaction.DefaultTheme())
	c := New(rctx, opts...)
	c.EnterReplay(log, 1.0)
	return c, rctx
}

func TestDelaySchedule(t *testing.T) {
	cases := []struct {
		speed float64
		want  []time.Duration
	}{
		{1.0, []time.Duration{
			30 * time.Millisecond,
			1200 * time.Millisecond,
			100 * time.Millisecond,
			4700 * time.Millisecond,
		}},
		{2.0, []time.Duration{
			30 * time.Millisecond,
			600 * time.Millisecond,
			50 * time.Millisecond,
			2350 * time.Millisecond,
		}},
	}

	for _, tc := range cases {
		c, _ := newReplay(t, sampleLog())
		c.SetSpeed(tc.speed)

		c.mu.Lock()
		for pos, want := range tc.want {
			c.pos = pos
			if got := c.delayLocked(); got != want {
				t.Errorf("speed %.0f position %d: delay %v, want %v", tc.speed, pos, got, want)
			}
		}
		c.mu.Unlock()
	}
}

func TestDelayFloorsAtMinDelay(t *testing.T) {
	c, _ := newReplay(t, sampleLog())
	c.SetSpeed(1000)

	c.mu.Lock()
	defer c.mu.Unlock()
	for pos := 0; pos < 4; pos++ {
		c.pos = pos
		if got := c.delayLocked(); got < c.minDelay {
			t.Errorf("position %d: delay %v below floor %v", pos, got, c.minDelay)
		}
	}
}

func TestDelayMissingTimestamps(t *testing.T) {
	log := event.NewLog([]event.Event{
		{Type: event.TypeBash, Timestamp: ts(0)},
		{Type: event.TypeThink}, // no timestamp
		{Type: event.TypeText, Timestamp: ts(9)},
	})
	c, _ := newReplay(t, log)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = 1
	if got := c.delayLocked(); got != c.minDelay {
		t.Errorf("missing current timestamp: delay %v, want minDelay", got)
	}
	c.pos = 2
	if got := c.delayLocked(); got != c.minDelay {
		t.Errorf("missing previous timestamp: delay %v, want minDelay", got)
	}
}

func TestDelayGapCapped(t *testing.T) {
	log := event.NewLog([]event.Event{
		{Type: event.TypeBash, Timestamp: ts(0)},
		{Type: event.TypeComplete, Timestamp: ts(120)}, // 2 minute idle gap
	})
	c, _ := newReplay(t, log)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = 1
	if got := c.delayLocked(); got != 5*time.Second {
		t.Errorf("expected gap capped at 5s, got %v", got)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestPlayThroughAutoPauses(t *testing.T) {
	rec := &recorder{}
	log := event.NewLog([]event.Event{
		{Type: event.TypeBash},
		{Type: event.TypeThink},
		{Type: event.TypeComplete},
	})
	c, _ := newReplay(t, log, WithPublisher(rec), WithMinDelay(2*time.Millisecond))

	c.Play()
	waitFor(t, func() bool { return !c.Playing() }, "playback never auto-paused")

	if got := c.Position(); got != 3 {
		t.Errorf("expected terminal position 3, got %d", got)
	}
	got := rec.types()
	want := []event.Type{event.TypeBash, event.TypeThink, event.TypeComplete}
	if len(got) != len(want) {
		t.Fatalf("expected %d dispatches, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dispatch %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// Play at the end of the log stays paused.
	c.Play()
	if c.Playing() {
		t.Error("play at end of log should be a no-op")
	}
}

func TestPlayPauseIdempotent(t *testing.T) {
	c, _ := newReplay(t, sampleLog(), WithMinDelay(50*time.Millisecond))

	c.Play()
	c.Play()
	if !c.Playing() {
		t.Error("expected playing after play")
	}

	c.Pause()
	c.Pause()
	if c.Playing() {
		t.Error("expected paused after pause")
	}
}

func TestPauseResumeNeverSkipsOrRefires(t *testing.T) {
	rec := &recorder{}
	log := event.NewLog([]event.Event{
		{Type: event.TypeBash},
		{Type: event.TypeThink},
		{Type: event.TypeText},
		{Type: event.TypeComplete},
	})
	c, _ := newReplay(t, log, WithPublisher(rec), WithMinDelay(10*time.Millisecond))

	c.Play()
	waitFor(t, func() bool { return rec.count() >= 1 }, "first dispatch never fired")
	c.Pause()

	seen := rec.count()
	pos := c.Position()
	if pos != seen {
		t.Fatalf("position %d disagrees with %d observed dispatches", pos, seen)
	}

	// Nothing fires while paused.
	time.Sleep(50 * time.Millisecond)
	if got := rec.count(); got != seen {
		t.Fatalf("dispatch fired while paused: %d -> %d", seen, got)
	}

	c.Play()
	waitFor(t, func() bool { return !c.Playing() }, "resume never completed")

	got := rec.types()
	if len(got) != 4 {
		t.Fatalf("expected 4 total dispatches, got %d", len(got))
	}
	want := []event.Type{event.TypeBash, event.TypeThink, event.TypeText, event.TypeComplete}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dispatch %d: expected %s, got %s (skip or re-fire)", i, want[i], got[i])
		}
	}
}

func TestSeekMatchesSequentialPlay(t *testing.T) {
	// Sequential playthrough, cranked fast so real gaps collapse to
	// the floor delay.
	cPlay, rctxPlay := newReplay(t, sampleLog(), WithMinDelay(2*time.Millisecond))
	cPlay.SetSpeed(10000)
	cPlay.Play()
	waitFor(t, func() bool { return !cPlay.Playing() }, "playthrough never finished")

	// Fresh attach, single seek to the end.
	cSeek, rctxSeek := newReplay(t, sampleLog())
	cSeek.Seek(4)

	a := rctxPlay.Observe(0)
	b := rctxSeek.Observe(0)

	if (a.Reaction == nil) != (b.Reaction == nil) {
		t.Fatal("seek and playthrough disagree on reaction presence")
	}
	if a.Reaction != nil && (a.Reaction.Type != b.Reaction.Type || a.Reaction.Duration != b.Reaction.Duration) {
		t.Errorf("reaction mismatch: play=%+v seek=%+v", a.Reaction, b.Reaction)
	}
	if a.Monitor != b.Monitor {
		t.Errorf("monitor mismatch: play=%+v seek=%+v", a.Monitor, b.Monitor)
	}
	if cPlay.Position() != cSeek.Position() {
		t.Errorf("position mismatch: play=%d seek=%d", cPlay.Position(), cSeek.Position())
	}
}

func TestSeekIdempotent(t *testing.T) {
	c, rctx := newReplay(t, sampleLog())

	c.Seek(2)
	first := rctx.Observe(0)
	pos := c.Position()

	c.Seek(2)
	second := rctx.Observe(0)

	if c.Position() != pos {
		t.Errorf("position changed on repeated seek: %d -> %d", pos, c.Position())
	}
	if (first.Reaction == nil) != (second.Reaction == nil) {
		t.Fatal("repeated seek changed reaction presence")
	}
	if first.Reaction != nil && first.Reaction.Type != second.Reaction.Type {
		t.Errorf("repeated seek changed reaction: %s -> %s", first.Reaction.Type, second.Reaction.Type)
	}
	if first.Monitor != second.Monitor {
		t.Errorf("repeated seek changed monitor: %+v -> %+v", first.Monitor, second.Monitor)
	}
}

func TestSeekClamps(t *testing.T) {
	c, _ := newReplay(t, sampleLog())

	c.Seek(-5)
	if got := c.Position(); got != 0 {
		t.Errorf("negative seek should clamp to 0, got %d", got)
	}
	c.Seek(999)
	if got := c.Position(); got != 4 {
		t.Errorf("past-end seek should clamp to length, got %d", got)
	}
}

func TestSeekThenPlayResumesFromTarget(t *testing.T) {
	rec := &recorder{}
	c, _ := newReplay(t, sampleLog(), WithPublisher(rec), WithMinDelay(2*time.Millisecond))

	c.Seek(2)
	rec.reset()

	c.SetSpeed(10000)
	c.Play()
	waitFor(t, func() bool { return !c.Playing() }, "playback never finished")

	got := rec.types()
	want := []event.Type{event.TypeError, event.TypeComplete}
	if len(got) != len(want) {
		t.Fatalf("expected %d dispatches after seek, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dispatch %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestSeekWhilePlayingResumes(t *testing.T) {
	c, _ := newReplay(t, sampleLog(), WithMinDelay(30*time.Millisecond))

	c.Play()
	c.Seek(1)
	if !c.Playing() {
		t.Error("seek during playback should resume playing")
	}
	if got := c.Position(); got != 1 {
		t.Errorf("expected position 1 after seek, got %d", got)
	}

	c.Pause()
	c.Seek(3)
	if c.Playing() {
		t.Error("seek while paused should stay paused")
	}
}

func TestSetSpeedReschedulesWithoutDoubleFire(t *testing.T) {
	rec := &recorder{}
	log := event.NewLog([]event.Event{
		{Type: event.TypeBash, Timestamp: ts(0)},
		{Type: event.TypeComplete, Timestamp: ts(3)},
	})
	c, _ := newReplay(t, log, WithPublisher(rec), WithMinDelay(2*time.Millisecond))

	c.Play()
	waitFor(t, func() bool { return rec.count() >= 1 }, "first dispatch never fired")

	// The 3s gap is pending; cranking the speed reschedules it fast.
	c.SetSpeed(1000)
	waitFor(t, func() bool { return !c.Playing() }, "rescheduled dispatch never fired")

	if got := rec.count(); got != 2 {
		t.Errorf("expected exactly 2 dispatches, got %d", got)
	}
}

func TestSetSpeedRejectsNonPositive(t *testing.T) {
	c, _ := newReplay(t, sampleLog())
	c.SetSpeed(0)
	c.SetSpeed(-2)
	if got := c.Speed(); got != 1.0 {
		t.Errorf("invalid speeds should be ignored, got %f", got)
	}
}

func TestLiveDeliver(t *testing.T) {
	rec := &recorder{}
	seed := make([]event.Event, 10)
	for i := range seed {
		seed[i] = event.Event{Type: event.TypeText}
	}
	log := event.NewLog(seed)

	rctx := reaction.NewContext(reaction.DefaultTheme())
	c := New(rctx, WithPublisher(rec))
	c.EnterLive(log)

	if got := c.Position(); got != 10 {
		t.Fatalf("live attach should start at the tail, got %d", got)
	}

	batch := []event.Event{
		{Type: event.TypeBash},
		{Type: event.TypeError},
		{Type: event.TypeComplete},
	}
	c.Deliver(batch)

	if got := c.Position(); got != 13 {
		t.Errorf("expected position 13 after batch of 3, got %d", got)
	}
	got := rec.types()
	want := []event.Type{event.TypeBash, event.TypeError, event.TypeComplete}
	if len(got) != len(want) {
		t.Fatalf("expected exactly %d dispatches, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dispatch %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// Only the last event's reaction survives.
	if snap := rctx.Observe(0); snap.Reaction == nil || snap.Reaction.Type != event.TypeComplete {
		t.Error("expected the batch's last reaction to win")
	}

	// Empty batch is a no-op.
	c.Deliver(nil)
	if got := c.Position(); got != 13 {
		t.Errorf("empty batch moved position to %d", got)
	}
}

func TestReattachRebuildsState(t *testing.T) {
	rctx := reaction.NewContext(reaction.DefaultTheme())
	c := New(rctx)
	log := event.NewLog(nil)
	c.EnterLive(log)

	c.Deliver([]event.Event{{Type: event.TypeError, Content: "boom boom boom"}})

	fresh := []event.Event{{Type: event.TypeText}, {Type: event.TypeText}}
	c.Reattach(fresh)

	if got := c.Position(); got != 2 {
		t.Errorf("expected position at new tail 2, got %d", got)
	}
	if snap := rctx.Observe(0); snap.Reaction != nil || snap.Monitor.Content != "" {
		t.Error("reattach should rebuild derived state from scratch")
	}
}

func TestStopDetaches(t *testing.T) {
	c, _ := newReplay(t, sampleLog(), WithMinDelay(20*time.Millisecond))
	c.Play()
	c.Stop()

	if c.Mode() != ModeIdle {
		t.Error("expected idle mode after stop")
	}
	if c.Playing() {
		t.Error("expected scheduler torn down after stop")
	}

	// Control calls on an idle controller are safe no-ops.
	c.Play()
	c.Pause()
	c.Seek(2)
	c.Deliver([]event.Event{{Type: event.TypeBash}})
	if got := c.Position(); got != 0 {
		t.Errorf("idle controller moved to %d", got)
	}
}

func TestBusPublisherIntegration(t *testing.T) {
	bus := notify.NewBus()
	var types []event.Type
	bus.Subscribe(notify.Func(func(ev event.Event) { types = append(types, ev.Type) }))

	rctx := reaction.NewContext(reaction.DefaultTheme())
	c := New(rctx, WithPublisher(bus))
	c.EnterReplay(sampleLog(), 1.0)
	c.Seek(2)

	if len(types) != 2 || types[0] != event.TypeBash || types[1] != event.TypeFileCreate {
		t.Errorf("expected seek to publish [bash file_create], got %v", types)
	}
}
