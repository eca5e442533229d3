// Package logging assembles structured slog loggers and formatting helpers used
// across stemsplit.
//
// It owns the console/JSON handlers, routes the status log through a rotating
// lumberjack writer, and exposes context-aware helpers so pipeline code tags
// log lines with run IDs, job IDs and stages. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
