// Package state owns the daemon's runtime state and its two on-disk
// documents: the live status snapshot and the capped transcript history.
//
// Mutators are total. Each one updates memory, rewrites the affected
// document atomically, and publishes a typed event through the configured
// publisher, all under one lock so subscribers observe events in mutation
// order. Persistence failures are logged and swallowed; a full disk must
// never stop ingestion. Construction reloads history (corrupt files start
// empty) and writes a fresh idle state, so a crash mid-transcription never
// leaves a stale "transcribing" snapshot behind.
package state
