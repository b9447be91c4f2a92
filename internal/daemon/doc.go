// Package daemon coordinates the long-running scribed process.
//
// It wires the state store, the broadcast socket, and the ingestion engine
// into a single lifecycle with flock-based locking to prevent multiple
// instances. Shutdown is ordered so that file intake stops before in-flight
// transcriptions drain, and subscribers stay connected until the final
// events have been published.
//
// Keep orchestration logic here: watching, transcribing, and broadcasting
// live in their own packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
