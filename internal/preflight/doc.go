// Package preflight provides readiness checks for the filesystem paths and
// external binaries scribed depends on.
//
// The daemon runs Verify once at startup and refuses to run when a required
// check fails. The CLI "scribe status" command reuses CheckSystemDeps to
// display tool availability, including optional tools that startup ignores.
package preflight
