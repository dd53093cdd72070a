package event

import "sync"

// Log is the append-only event log the timeline controller attaches to.
// The log exclusively owns its events; callers read by index or take a
// snapshot copy of the slice header.
//
// A Log may grow (live tailing) or be replaced wholesale (re-attach
// after a full-snapshot delivery). It never reorders or drops events.
type Log struct {
	mu     sync.RWMutex
	events []Event
}

// NewLog creates a log seeded with the given events.
func NewLog(events []Event) *Log {
	l := &Log{}
	if len(events) > 0 {
		l.events = append(l.events, events...)
	}
	return l
}

// Len returns the number of events in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// At returns the event at index i. Panics on out-of-range access, the
// same contract as a slice; the timeline controller guarantees its
// position stays within [0, Len].
func (l *Log) At(i int) Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.events[i]
}

// Append adds a batch to the tail and returns the new length.
// An empty batch is a no-op.
func (l *Log) Append(batch []Event) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, batch...)
	return len(l.events)
}

// Replace swaps the full contents of the log. Used when a feed
// delivers a fresh snapshot rather than an incremental batch; derived
// state must be rebuilt by the attached controller.
func (l *Log) Replace(events []Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events[:0:0], events...)
}

// Snapshot returns a copy of the current events.
func (l *Log) Snapshot() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Event(nil), l.events...)
}
