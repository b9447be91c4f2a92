package testsupport

import (
	"sync"

	"scribe/internal/ipc"
)

// EventRecorder captures events published by a state store so tests can
// assert on emission order and payloads. Safe for concurrent use.
type EventRecorder struct {
	mu     sync.Mutex
	events []ipc.Event
}

// NewEventRecorder returns an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Submit implements the store's publisher seam.
func (r *EventRecorder) Submit(event ipc.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything recorded so far.
func (r *EventRecorder) Events() []ipc.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ipc.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset clears the recorded events.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
