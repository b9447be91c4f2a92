package ipc

import (
	"log/slog"
	"sync"

	"scribe/internal/logging"
)

// Bridge decouples state mutation from socket delivery. The store publishes
// through Submit, which never blocks: before the server starts (and after it
// stops) events are discarded, and once a sink is attached a full buffer
// drops the event rather than stalling the transcription pipeline.
type Bridge struct {
	mu     sync.RWMutex
	sink   func(Event) bool
	logger *slog.Logger
}

// NewBridge returns a bridge with no sink attached.
func NewBridge(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bridge{logger: logging.NewComponentLogger(logger, "ipc")}
}

// Attach routes subsequent Submit calls into sink. The sink reports whether
// it accepted the event.
func (b *Bridge) Attach(sink func(Event) bool) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

// Detach disconnects the sink. Submit becomes a no-op again.
func (b *Bridge) Detach() {
	b.mu.Lock()
	b.sink = nil
	b.mu.Unlock()
}

// Submit hands an event to the attached sink, if any.
func (b *Bridge) Submit(event Event) {
	b.mu.RLock()
	sink := b.sink
	b.mu.RUnlock()
	if sink == nil {
		return
	}
	if !sink(event) {
		b.logger.Debug("event dropped, broadcast queue full", logging.String(logging.FieldEventType, event.EventName()))
	}
}
