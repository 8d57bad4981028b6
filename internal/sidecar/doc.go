// Package sidecar reads, edits and writes the JSON metadata the converter
// emits beside each volume.
//
// Metadata keeps every converter-supplied key and only the recognized fields
// (EchoTime, EchoNumber, ImageType, TaskName, IntendedFor) are interpreted.
// The package also rewrites linked-series references into output filenames
// and stitches the two echo times of a dual-echo fieldmap from its paired
// magnitude sidecar.
package sidecar
