// Package walker enumerates conversion units from the raw DICOM tree and makes
// sure each unit has been converted exactly once.
//
// A unit is one subject directory, or one subject/session directory when
// sessions are enabled. A unit whose working directory already exists is
// considered converted and is never handed to the converter again.
package walker
