// Package main hosts the bidskit CLI entrypoint and command graph.
//
// The Cobra-based command tree exposes the conversion workflow, protocol
// translator inspection, run history from the ledger, readiness checks, and
// configuration scaffolding. It centralizes configuration resolution and
// logger setup so subcommands only deal with presentation.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// surfaced here through dedicated commands or flags.
package main
