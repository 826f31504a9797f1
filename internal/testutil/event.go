// Package testutil builds a complete in-process warehouse stack over SQLite
// for application and HTTP tests.
package testutil

import (
	"context"
	"sync"

	"github.com/erp/warehouse/internal/domain/shared"
)

// EventRecorder is a shared.EventHandler that keeps every event it sees
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewEventRecorder creates a recorder. No event types means all events.
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

// EventTypes returns the event types this recorder subscribes to
func (r *EventRecorder) EventTypes() []string {
	return r.eventTypes
}

// Handle records event
func (r *EventRecorder) Handle(ctx context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, event)
	return r.err
}

// Handled returns a copy of everything recorded so far
func (r *EventRecorder) Handled() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.DomainEvent, len(r.handled))
	copy(out, r.handled)
	return out
}

// Types returns the type of each recorded event in order
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.handled))
	for i, e := range r.handled {
		out[i] = e.EventType()
	}
	return out
}

// Count returns how many events of eventType were recorded
func (r *EventRecorder) Count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.handled {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

// SetError makes Handle fail with err
func (r *EventRecorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Reset clears the recorded events and any configured error
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = make([]shared.DomainEvent, 0)
	r.err = nil
}
