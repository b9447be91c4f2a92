// Package engine ingests recordings dropped into the incoming directory.
//
// A filesystem watcher feeds candidate paths through extension filtering and
// deduplication into a pending queue drained by a single worker, so at most
// one transcription runs at a time. Before dispatch the worker polls the file
// size until it stops growing, guarding against partially-copied files. After
// a successful run the source moves into the archive directory under a
// collision-safe name, or is deleted when a .noarchive marker sits beside it.
//
// Failures are terminal per file: the path leaves the in-flight tracker so
// re-dropping the file retries it, and nothing is retried automatically. The
// pending queue lives in memory only; recordings queued but not yet dispatched
// when the daemon stops are picked up again by the startup scan.
package engine
