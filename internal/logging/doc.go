// Package logging assembles structured slog loggers and formatting helpers used
// across scdmix.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so merge code can tag log lines
// with run IDs, item and target indexes, and source names. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
