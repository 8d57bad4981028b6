// Package dcm2niix wraps the dcm2niix command-line converter.
//
// One invocation converts a unit's raw DICOM directory into its working
// directory, writing a compressed volume and a JSON sidecar per series named
// "%n--%d--%q--%s" (subject, description, sequence, series number). The client
// streams converter output line by line, counts converted series and keeps
// warnings for the run log. Executor injection keeps tests independent of the
// real binary.
package dcm2niix
