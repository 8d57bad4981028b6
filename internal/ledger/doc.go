// Package ledger records conversion history in SQLite.
//
// Each invocation of the workflow opens a run row, appends one placement row
// per artifact it created, replaced or preserved, and closes the run with its
// totals. The ledger is write-only from the workflow's point of view: no
// placement decision ever reads it, so deleting the database never changes
// what a re-run produces. The CLI history command reads it back.
package ledger
