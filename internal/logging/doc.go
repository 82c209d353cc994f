// Package logging assembles structured slog loggers and formatting helpers used
// across ytscribe.
//
// It owns the console and JSON handlers, mirrors every record of a run into a
// per-run log file under the configured log directory, prunes old run logs,
// and exposes context-aware helpers so pipeline code can tag log lines with the
// video ID, stage, and item position. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging
