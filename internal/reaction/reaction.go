// Package reaction maps dispatched events into time-bounded visual
// state: the active reaction, the monitor content buffer, and the
// typing-speed signal sampled by the scene renderer every frame.
package reaction

import (
	"sync"
	"time"

	"github.com/vinayprograms/agentcam/internal/event"
)

// StartUnset marks a reaction whose start frame has not been bound yet.
// Binding happens on the renderer's first observation, so a reaction
// created between frames still runs its full duration.
const StartUnset int64 = -1

// Speed is the typing-speed signal derived from recent activity.
type Speed string

const (
	SpeedNormal Speed = "normal"
	SpeedFast   Speed = "fast"
	SpeedSlow   Speed = "slow"
	SpeedFrozen Speed = "frozen"
)

// Reaction is one time-bounded cosmetic animation state.
type Reaction struct {
	Type       event.Type
	StartFrame int64
	Duration   int64
}

// Active reports whether the reaction is still running at frame.
// An unbound reaction counts as active; its clock has not started.
func (r *Reaction) Active(frame int64) bool {
	if r == nil {
		return false
	}
	if r.StartFrame == StartUnset {
		return true
	}
	return frame-r.StartFrame < r.Duration
}

// Monitor is the content currently shown on the scene's monitor,
// paired with the event type that produced it for color selection.
type Monitor struct {
	Content string
	Source  event.Type
}

// Snapshot is the renderer's per-frame view of reaction state.
type Snapshot struct {
	Reaction *Reaction
	Monitor  Monitor
	Typing   Speed
}

// Context holds the reaction state for one stream-surface scope.
// All surfaces rendering the same stream share one Context; independent
// streams get independent Contexts, and the aggregate view runs a
// single shared Context where the last qualifying event wins.
type Context struct {
	mu      sync.Mutex
	theme   Theme
	current *Reaction
	monitor Monitor
	typing  Speed

	// revertGen guards against a stale typing-revert timer firing
	// after a newer signal replaced it.
	revertGen   uint64
	revertTimer *time.Timer
}

// NewContext creates a reaction context with the given theme.
func NewContext(theme Theme) *Context {
	return &Context{
		theme:  theme,
		typing: SpeedNormal,
	}
}

// Dispatch records the visual effects of one event. It never fails:
// unknown types get the default duration and no typing signal.
func (c *Context) Dispatch(ev event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = &Reaction{
		Type:       ev.Type,
		StartFrame: StartUnset,
		Duration:   c.theme.Duration(ev.Type),
	}

	if len(ev.Content) >= c.theme.MinContentLen {
		c.monitor = Monitor{Content: ev.Content, Source: ev.Type}
	}

	if speed, ok := typingSignal(ev.Type); ok {
		c.setTypingLocked(speed)
	}
}

// typingSignal maps event types to their transient typing speed.
func typingSignal(t event.Type) (Speed, bool) {
	switch t {
	case event.TypeBash, event.TypeToolCall, event.TypeFileCreate, event.TypeFileUpdate:
		return SpeedFast, true
	case event.TypeThink:
		return SpeedSlow, true
	case event.TypeError:
		return SpeedFrozen, true
	}
	return SpeedNormal, false
}

// setTypingLocked installs a typing signal and arms its wall-clock
// revert. Wall-clock rather than frame-based so the signal lasts the
// same real time regardless of render rate.
func (c *Context) setTypingLocked(speed Speed) {
	c.typing = speed
	c.revertGen++
	gen := c.revertGen

	if c.revertTimer != nil {
		c.revertTimer.Stop()
	}
	c.revertTimer = time.AfterFunc(c.theme.TypingRevert(), func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.revertGen != gen {
			return
		}
		c.typing = SpeedNormal
		c.revertTimer = nil
	})
}

// Observe binds an unset reaction to the given frame, clears an
// expired one, and returns the resulting snapshot. This is the only
// mutation the render path performs.
func (c *Context) Observe(frame int64) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		if c.current.StartFrame == StartUnset {
			c.current.StartFrame = frame
		} else if !c.current.Active(frame) {
			c.current = nil
		}
	}

	snap := Snapshot{Monitor: c.monitor, Typing: c.typing}
	if c.current != nil {
		r := *c.current
		snap.Reaction = &r
	}
	return snap
}

// Reset clears all derived state. Called on replay entry and before a
// seek's deterministic re-dispatch.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = nil
	c.monitor = Monitor{}
	c.typing = SpeedNormal
	c.revertGen++
	if c.revertTimer != nil {
		c.revertTimer.Stop()
		c.revertTimer = nil
	}
}
