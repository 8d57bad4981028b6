// Package config loads, normalizes, and validates bidskit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BIDSKIT_DCM2NIIX. Working and derivatives directories default to siblings of
// the BIDS source directory, mirroring the layout the converter has always used:
//
//	<root>/source                   BIDS source output
//	<root>/work/conversion          converter output, one dir per unit
//	<root>/derivatives/conversion   protocol translator, ledger, lock
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
