// Package logging constructs the daemon's slog loggers and centralizes the
// attribute vocabulary used across pipeline stages. Console output is for
// interactive runs; JSON output is for log shippers. Component loggers carry a
// standardized component attribute so a single meeting's trail can be filtered
// across intake, transcription, and merge.
package logging
