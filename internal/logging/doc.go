// Package logging assembles the structured slog loggers used across Scribe.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes helpers so daemon components automatically tag log
// lines with component names and media filenames. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
