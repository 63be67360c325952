// Package eventstest provides an in-memory events.Publisher for tests.
package eventstest

import (
	"context"
	"sync"

	"github.com/knowshare/internal/events"
)

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *Recorder) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Types lists the event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}
