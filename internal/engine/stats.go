package engine

import "scribe/internal/ipc"

// Stats returns the lifetime ingestion counters tracked by the state store.
func (e *Engine) Stats() ipc.Stats {
	return e.store.Stats()
}

// QueueLength reports how many recordings are waiting for the worker.
func (e *Engine) QueueLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}
