// Package logging assembles the structured slog loggers used across
// plex-parity.
//
// It owns the console and JSON handlers, level parsing, and output plumbing
// (stderr plus an optional size-rotated log file), and exposes attribute
// helpers so packages emit the same field names. WarnWithContext enforces the
// event_type, error_hint and impact fields on warnings so every warning says
// what happened, what it costs, and what to try next.
//
// NewNop returns a discard logger for tests and for constructors that accept
// a nil logger.
package logging
