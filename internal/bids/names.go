package bids

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// ImageExt is the extension of a compressed volume, the converter default.
	ImageExt = ".nii.gz"
	// PlainImageExt is the extension of a volume converted without compression.
	PlainImageExt = ".nii"
	// SidecarExt is the extension of metadata sidecars.
	SidecarExt = ".json"
	// BvalExt and BvecExt are the diffusion gradient tables.
	BvalExt = ".bval"
	BvecExt = ".bvec"
	// EventsExt is the extension of functional events tables.
	EventsExt = ".tsv"

	boldType     = "_bold"
	eventsSuffix = "_events" + EventsExt
)

// EventsTemplate is the placeholder events table written beside echo-planar functional images.
const EventsTemplate = "onset\tduration\ttrial_type\tresponse_time\n" +
	"1.0\t0.5\tgo\t0.555\n" +
	"2.5\t0.4\tstop\t0.666\n"

// Prefix returns "sub-<subject>_" or "sub-<subject>_ses-<session>_".
func Prefix(subject, session string) string {
	if session == "" {
		return "sub-" + subject + "_"
	}
	return "sub-" + subject + "_ses-" + session + "_"
}

// SubjectDir returns the "sub-<subject>" directory label.
func SubjectDir(subject string) string {
	return "sub-" + subject
}

// SessionDir returns the "ses-<session>" directory label.
func SessionDir(session string) string {
	return "ses-" + session
}

// AddRunNumber inserts a zero-padded run marker before the final underscore
// field of suffix, or prefixes it when suffix has no underscore.
//
//	AddRunNumber("task-rest_bold", 2) == "task-rest_run-02_bold"
//	AddRunNumber("T1w", 1)            == "run-01_T1w"
func AddRunNumber(suffix string, run int) string {
	if idx := strings.LastIndex(suffix, "_"); idx >= 0 {
		return fmt.Sprintf("%s_run-%02d_%s", suffix[:idx], run, suffix[idx+1:])
	}
	return fmt.Sprintf("run-%02d_%s", run, suffix)
}

// ParseKeys splits an output filename into its key-value entities. A field
// without a hyphen is recorded under the key "type".
//
//	ParseKeys("sub-01_task-rest_bold.nii.gz") == {"sub": "01", "task": "rest", "type": "bold"}
func ParseKeys(filename string) map[string]string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	keys := make(map[string]string)
	for _, field := range strings.Split(base, "_") {
		key, value, ok := strings.Cut(field, "-")
		if !ok {
			keys["type"] = field
			continue
		}
		keys[key] = value
	}
	return keys
}

// VolumeExt returns the volume extension of path: ImageExt for a gzip
// container, PlainImageExt otherwise.
func VolumeExt(path string) string {
	if strings.HasSuffix(path, ImageExt) {
		return ImageExt
	}
	return PlainImageExt
}

// IsVolume reports whether name already carries a volume extension.
func IsVolume(name string) bool {
	return strings.HasSuffix(name, ImageExt) || strings.HasSuffix(name, PlainImageExt)
}

// EventsPath returns the events table that accompanies a functional image.
// A "_bold" type is replaced by "_events"; any other name gets "_events"
// appended to its stem.
//
//	EventsPath("func/sub-01_task-rest_bold.nii.gz")  == "func/sub-01_task-rest_events.tsv"
//	EventsPath("func/sub-01_task-rest_sbref.nii.gz") == "func/sub-01_task-rest_sbref_events.tsv"
func EventsPath(image string) string {
	stem := strings.TrimSuffix(image, VolumeExt(image))
	return strings.TrimSuffix(stem, boldType) + eventsSuffix
}

// ReplaceExt swaps the volume or SidecarExt extension of path for ext.
func ReplaceExt(path, ext string) string {
	switch {
	case strings.HasSuffix(path, ImageExt):
		return strings.TrimSuffix(path, ImageExt) + ext
	case strings.HasSuffix(path, PlainImageExt):
		return strings.TrimSuffix(path, PlainImageExt) + ext
	case strings.HasSuffix(path, SidecarExt):
		return strings.TrimSuffix(path, SidecarExt) + ext
	default:
		return strings.TrimSuffix(path, filepath.Ext(path)) + ext
	}
}

// AppendEntity adds a trailing "_<label>" to the stem of path, keeping its extension.
//
//	AppendEntity("fmap/sub-01_fieldmap.nii.gz", "magnitude") == "fmap/sub-01_fieldmap_magnitude.nii.gz"
func AppendEntity(path, label string) string {
	for _, ext := range []string{ImageExt, PlainImageExt, SidecarExt} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext) + "_" + label + ext
		}
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + label + ext
}
