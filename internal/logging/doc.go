// Package logging assembles structured slog loggers and formatting helpers used
// across bidskit.
//
// It owns the console and JSON handlers, fans records out to the persistent
// log file, and exposes context-aware helpers so organizer code can tag log
// lines with the subject, session and series being processed. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
