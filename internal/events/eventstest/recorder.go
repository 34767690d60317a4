// Package eventstest provides an events.Dispatcher that records what was published.
package eventstest

import (
	"context"
	"sync"

	"github.com/spec-kit/marketplace-bot/internal/events"
)

// Recorder keeps every published event.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

var _ events.Dispatcher = (*Recorder)(nil)

// Publish records the event.
func (r *Recorder) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Subscribe is a no-op.
func (r *Recorder) Subscribe(events.EventType, events.EventHandler) {}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// OfType returns recorded events of type t.
func (r *Recorder) OfType(t events.EventType) []events.Event {
	var out []events.Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
