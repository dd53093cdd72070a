// Package notify carries the "event dispatched" notifications the
// timeline fires once per event. Subscribers (sound effects, chat,
// external dashboards) are best-effort: the engine never blocks on
// them and never cares whether any exist.
package notify

import (
	"sync"

	"github.com/vinayprograms/agentcam/internal/event"
)

// Publisher receives one notification per dispatched event.
type Publisher interface {
	Publish(ev event.Event)
}

// Func adapts a plain function to the Publisher interface.
type Func func(ev event.Event)

func (f Func) Publish(ev event.Event) { f(ev) }

// Bus fans a notification out to every subscribed publisher, in
// subscription order.
type Bus struct {
	mu   sync.RWMutex
	subs []Publisher
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe adds a publisher to the fan-out.
func (b *Bus) Subscribe(p Publisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, p)
}

// Publish delivers the event to every subscriber.
func (b *Bus) Publish(ev event.Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, p := range subs {
		p.Publish(ev)
	}
}
