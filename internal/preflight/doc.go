// Package preflight provides readiness checks for the converter binary and the
// dataset directories bidskit reads and writes.
//
// These checks run in two contexts:
//   - The workflow calls RunAll before touching any unit. A failed check stops
//     the run before the converter is started or any file is placed.
//   - The CLI "bidskit check" command prints every result as a table.
package preflight
