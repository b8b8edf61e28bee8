// Package logging assembles structured slog loggers and formatting helpers used
// across the release pipeline.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code can automatically tag
// log lines with batch run IDs, group IDs, and item IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
