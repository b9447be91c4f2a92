// Package language normalizes language values that cross the transcriber
// boundary: operator-configured forced languages become the ISO 639-1 codes
// the command expects, and detected codes become display names for tables
// and notifications.
package language
