// Package timeline owns the single authoritative position within an
// event log and advances it across three temporal regimes: live tail,
// scheduled replay, and direct seek. Every advance dispatches the
// event to the reaction context and the notification publisher.
package timeline

import (
	"sync"
	"time"

	"github.com/vinayprograms/agentcam/internal/event"
	"github.com/vinayprograms/agentcam/internal/logging"
	"github.com/vinayprograms/agentcam/internal/notify"
	"github.com/vinayprograms/agentcam/internal/reaction"
)

// Mode is the controller's attachment state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeLive
	ModeReplay
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeReplay:
		return "replay"
	}
	return "idle"
}

const (
	defaultMinDelay = 30 * time.Millisecond
	defaultCapGap   = 5 * time.Second
)

// Controller drives one reaction context from one event log.
//
// All mutation happens under one mutex; the scheduling timer re-enters
// through fire, which checks a generation counter so a timer cancelled
// between firing and locking is a no-op. Publishers are invoked while
// the lock is held to keep dispatch order identical to log order, so
// they must return quickly and must not call back into the controller.
type Controller struct {
	mu     sync.Mutex
	rctx   *reaction.Context
	pub    notify.Publisher
	logger *logging.Logger

	log     *event.Log
	mode    Mode
	pos     int
	playing bool
	speed   float64

	minDelay time.Duration
	capGap   time.Duration

	timer *time.Timer
	gen   uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithPublisher sets the per-dispatch notification publisher.
func WithPublisher(p notify.Publisher) Option {
	return func(c *Controller) { c.pub = p }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) { c.logger = l.WithComponent("timeline") }
}

// WithMinDelay overrides the minimum inter-dispatch delay.
func WithMinDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.minDelay = d
		}
	}
}

// WithCapGap overrides the ceiling on a single inter-event gap.
func WithCapGap(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.capGap = d
		}
	}
}

// New creates an idle controller bound to a reaction context.
func New(rctx *reaction.Context, opts ...Option) *Controller {
	c := &Controller{
		rctx:     rctx,
		speed:    1.0,
		minDelay: defaultMinDelay,
		capGap:   defaultCapGap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.New().WithComponent("timeline")
	}
	return c
}

// EnterLive attaches to a log that may grow. Position starts at the
// tail; history is not replayed.
func (c *Controller) EnterLive(log *event.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	c.log = log
	c.mode = ModeLive
	c.pos = log.Len()
	c.playing = false
	c.rctx.Reset()
	c.logger.Info("attached live", map[string]interface{}{"position": c.pos})
}

// Deliver appends a live batch and dispatches each event in order.
// Each event gets its own dispatch, so each gets its own reaction
// opportunity even though only the last one typically survives.
// An empty batch is a no-op.
func (c *Controller) Deliver(batch []event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeLive || len(batch) == 0 {
		return
	}
	c.log.Append(batch)
	for _, ev := range batch {
		c.dispatchLocked(ev)
		c.pos++
	}
}

// Reattach replaces the log contents with a fresh snapshot. Derived
// state is rebuilt rather than assumed diffable; in live mode the
// position jumps to the new tail.
func (c *Controller) Reattach(events []event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeIdle || c.log == nil {
		return
	}
	c.cancelLocked()
	c.log.Replace(events)
	c.rctx.Reset()
	if c.mode == ModeLive {
		c.pos = c.log.Len()
	} else {
		c.pos = 0
		c.playing = false
	}
}

// EnterReplay attaches to a log for scheduled playback, position 0,
// paused, with all derived visual state cleared.
func (c *Controller) EnterReplay(log *event.Log, speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	c.log = log
	c.mode = ModeReplay
	c.pos = 0
	c.playing = false
	if speed > 0 {
		c.speed = speed
	}
	c.rctx.Reset()
	c.logger.Info("attached replay", map[string]interface{}{
		"events": log.Len(),
		"speed":  c.speed,
	})
}

// Play arms the scheduler. No-op while already playing, outside
// replay mode, or at the end of the log.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeReplay || c.playing {
		return
	}
	if c.pos >= c.log.Len() {
		return
	}
	c.playing = true
	c.armLocked()
}

// Pause cancels the pending dispatch. Idempotent.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playing {
		return
	}
	c.playing = false
	c.cancelLocked()
}

// Seek clamps target to [0, length] and deterministically replays all
// side effects from scratch: derived state is reset, then events
// [0, target) are dispatched in order with no scheduling delay. If
// playback was active it resumes from target.
func (c *Controller) Seek(target int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeIdle || c.log == nil {
		return
	}
	if target < 0 {
		target = 0
	}
	if n := c.log.Len(); target > n {
		target = n
	}

	wasPlaying := c.playing
	c.playing = false
	c.cancelLocked()

	c.rctx.Reset()
	for i := 0; i < target; i++ {
		c.dispatchLocked(c.log.At(i))
	}
	c.pos = target

	if wasPlaying && c.pos < c.log.Len() {
		c.playing = true
		c.armLocked()
	}
}

// SetSpeed updates the gap divisor. If a dispatch is pending it is
// rescheduled at the new speed without skipping or double-firing.
// Non-positive speeds are ignored.
func (c *Controller) SetSpeed(speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if speed <= 0 {
		return
	}
	c.speed = speed
	if c.playing {
		c.cancelLocked()
		c.armLocked()
	}
}

// Stop tears down scheduling and detaches. The log itself is left
// intact for the owner.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	c.playing = false
	c.mode = ModeIdle
	c.pos = 0
	c.log = nil
	c.rctx.Reset()
}

// Position returns the current timeline position.
func (c *Controller) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// Playing reports whether the replay scheduler is armed.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Mode returns the controller's attachment state.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Speed returns the current playback speed multiplier.
func (c *Controller) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Length returns the attached log's length, 0 when idle.
func (c *Controller) Length() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.log == nil {
		return 0
	}
	return c.log.Len()
}

// dispatchLocked sends one event through the reaction context and the
// publisher. Dispatch never fails; cosmetic effects degrade silently.
func (c *Controller) dispatchLocked(ev event.Event) {
	c.rctx.Dispatch(ev)
	if c.pub != nil {
		c.pub.Publish(ev)
	}
	c.logger.Dispatch(string(ev.Type), c.pos)
}

// armLocked schedules the dispatch of the event at the current
// position. Reaching the end of the log auto-pauses.
func (c *Controller) armLocked() {
	if !c.playing || c.mode != ModeReplay {
		return
	}
	if c.pos >= c.log.Len() {
		c.playing = false
		c.logger.Info("playback complete", map[string]interface{}{"position": c.pos})
		return
	}

	delay := c.delayLocked()
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(delay, func() { c.fire(gen) })
}

// fire is the timer re-entry point. The generation check makes a
// timer that was cancelled after firing a no-op.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || !c.playing || c.mode != ModeReplay {
		return
	}
	if c.pos >= c.log.Len() {
		c.playing = false
		return
	}
	c.dispatchLocked(c.log.At(c.pos))
	c.pos++
	c.armLocked()
}

// cancelLocked cancels at most one outstanding scheduled dispatch.
// Bumping the generation invalidates a timer that already fired but
// has not taken the lock yet.
func (c *Controller) cancelLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// delayLocked computes the wait before dispatching the event at the
// current position: minDelay at position 0 or around missing
// timestamps, otherwise the real inter-event gap capped at capGap,
// divided by speed, and floored at minDelay.
func (c *Controller) delayLocked() time.Duration {
	if c.pos == 0 {
		return c.minDelay
	}
	cur := c.log.At(c.pos)
	prev := c.log.At(c.pos - 1)
	if !cur.HasTimestamp() || !prev.HasTimestamp() {
		return c.minDelay
	}

	gap := cur.Timestamp.Sub(prev.Timestamp)
	if gap < 0 {
		gap = 0
	}
	if gap > c.capGap {
		gap = c.capGap
	}
	delay := time.Duration(float64(gap) / c.speed)
	if delay < c.minDelay {
		delay = c.minDelay
	}
	return delay
}
