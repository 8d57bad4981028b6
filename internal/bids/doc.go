// Package bids holds the naming rules of the BIDS output hierarchy: subject and
// session prefixes, run markers, entity parsing and the fixed file extensions
// used for images, sidecars and events tables.
package bids
