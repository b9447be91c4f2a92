// Package ipc broadcasts transcription events over a newline-delimited JSON
// Unix socket and ships the matching client used by the CLI.
//
// It owns socket lifecycle management and the closed set of wire event
// variants. Every document the server emits passes through Encode, which
// stamps the discriminator from the variant's type, so a new event kind
// cannot reach the wire without being added to the variant set. The bridge
// sits between the state store and the server: stores publish through it
// without blocking, and events that arrive while no server is attached, or
// while the dispatch queue is full, are dropped rather than stalling
// transcription.
//
// Subscribers receive a full state snapshot on connect followed by live
// events in publish order. Inbound lines are commands; malformed or unknown
// input is ignored so a misbehaving client cannot disturb the stream.
package ipc
