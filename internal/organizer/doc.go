// Package organizer reorganizes one conversion unit's working directory into
// the source tree.
//
// OrganizeUnit drives the per-unit pipeline: discover the converted series,
// compute the run table once, resolve each series against the protocol
// mapping, let the purpose transformer rewrite names and metadata, then hand
// every artifact to the materializer. Per-series failures are logged and
// counted in the unit report; they never escape the unit. RecordTemplates is
// the first-pass counterpart that only collects series descriptions.
package organizer
