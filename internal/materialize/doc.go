// Package materialize places output artifacts into the BIDS source tree under
// an explicit preserve-or-overwrite policy.
//
// Every artifact kind (image copy, re-serialized sidecar, gradient tables,
// events placeholder) goes through the same Decide function so the three-way
// create/overwrite/preserve branching lives in one place.
package materialize
