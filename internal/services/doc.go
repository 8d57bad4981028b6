// Package services defines shared utilities consumed by the conversion workflow
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, subject/session identifiers, and
//     series stems for logging.
//   - Structured error markers plus the Wrap helper that separate fatal
//     run-level failures from per-series or per-unit problems.
//
// Use these helpers when wiring new logic so operational behaviour (error
// classification, observability) stays uniform across the pipeline.
package services
