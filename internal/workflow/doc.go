// Package workflow drives one complete bidskit run over a dataset.
//
// Run bootstraps the dataset directories, takes an exclusive lock on the
// derivatives directory, loads the protocol translator and picks the pass:
//
//   - Template pass: no translator entries yet, or no working tree. Every unit
//     is converted and its series descriptions are collected into a template
//     translator that the operator completes by hand.
//   - Organize pass: the translator is populated and the working tree exists.
//     Units are converted if new, summarized in participants.tsv and
//     reorganized into the source tree.
//
// Unit-level failures are logged and counted; only configuration errors and
// missing demographics abort the run. Every run is recorded in the SQLite
// ledger when it is enabled.
package workflow
