// Package purpose computes where a converted series goes and how its sidecar
// changes, one handler per output category.
//
// A Transformer never touches the filesystem beyond reading sidecars needed
// for echo-time stitching; it returns a Plan that the organizer hands to the
// materializer. The handler set is closed: every mapping.Category has exactly
// one handler and an unrecognized category yields an error, not a silent no-op.
package purpose
