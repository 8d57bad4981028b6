// Package mapping manages the protocol translator: the hand-edited JSON table
// that maps each scanner series description to an output category, a BIDS
// filename suffix and optional linked series.
//
// The first run records a template entry for every description it meets and
// persists the table once. Later runs load the file read-only and treat it as
// authoritative; a malformed file aborts the run before any placement.
package mapping
