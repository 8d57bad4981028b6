package series

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

// Delimiter separates the fields of a converter filename.
const Delimiter = "--"

// Sequence families reported in the third filename field.
const (
	SequenceGradientEcho   = "GR"
	SequenceEchoPlanar     = "EP"
	SequenceInversionGR    = "GR_IR"
	SequenceSpinEcho       = "SE"
	minimumFilenameFields  = 4
	volumeGlob             = "*.nii*"
	compressedContainerExt = ".gz"
)

// ErrMalformedSeriesName reports a converter filename with fewer than four fields.
var ErrMalformedSeriesName = errors.New("malformed series name")

// Series is one converted acquisition in a unit's working directory.
type Series struct {
	SubjectToken   string
	Description    string
	SequenceFamily string
	// SeriesToken is the raw fourth field, e.g. "12" or "12a" for the echo-2
	// magnitude the converter splits out of a dual-echo fieldmap.
	SeriesToken string
	// SeriesNumber holds the leading digits of SeriesToken, or -1 when there are none.
	SeriesNumber int
	// Stem is the filename without directory or extensions.
	Stem string
	// Path is the volume's location on disk; empty when parsed from a bare name.
	Path string
}

// SidecarPath returns the metadata sidecar the converter wrote beside the volume.
func (s Series) SidecarPath() string {
	return filepath.Join(filepath.Dir(s.Path), s.Stem+".json")
}

// CompanionPath returns a same-stem file in the working directory, such as ".bval".
func (s Series) CompanionPath(ext string) string {
	return filepath.Join(filepath.Dir(s.Path), s.Stem+ext)
}

// StripExtensions removes one extension, and a second one when the first was
// a compressed container (".nii.gz" -> stem).
func StripExtensions(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if ext == compressedContainerExt {
		stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	}
	return stem
}

// Parse decodes a converter filename (with or without directory and extensions).
// Descriptions that themselves contain the delimiter are kept intact: the first
// field is the subject and the last two are sequence and series number.
func Parse(name string) (Series, error) {
	stem := StripExtensions(filepath.Base(name))
	fields := strings.Split(stem, Delimiter)
	if len(fields) < minimumFilenameFields {
		return Series{}, fmt.Errorf("%w: %q has %d fields, want %d", ErrMalformedSeriesName, stem, len(fields), minimumFilenameFields)
	}
	last := len(fields) - 1
	token := fields[last]
	return Series{
		SubjectToken:   fields[0],
		Description:    strings.Join(fields[1:last-1], Delimiter),
		SequenceFamily: fields[last-1],
		SeriesToken:    token,
		SeriesNumber:   leadingNumber(token),
		Stem:           stem,
		Path:           name,
	}, nil
}

// WithSeriesToken returns the filename stem of a sibling series that differs
// only in its series number.
func (s Series) WithSeriesToken(token string) string {
	return strings.Join([]string{s.SubjectToken, s.Description, s.SequenceFamily, token}, Delimiter)
}

func leadingNumber(token string) int {
	end := strings.IndexFunc(token, func(r rune) bool { return !unicode.IsDigit(r) })
	if end < 0 {
		end = len(token)
	}
	if end == 0 {
		return -1
	}
	n, err := strconv.Atoi(token[:end])
	if err != nil {
		return -1
	}
	return n
}

// Rejected is a volume whose name could not be parsed.
type Rejected struct {
	Path string
	Err  error
}

// Discover lists every volume in dir in lexical order. Malformed names are
// returned separately so the caller can report them and carry on.
func Discover(dir string) ([]Series, []Rejected, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, nil, fmt.Errorf("stat working directory: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, volumeGlob))
	if err != nil {
		return nil, nil, fmt.Errorf("list volumes: %w", err)
	}
	var (
		found    []Series
		rejected []Rejected
	)
	for _, path := range paths {
		s, err := Parse(path)
		if err != nil {
			rejected = append(rejected, Rejected{Path: path, Err: err})
			continue
		}
		found = append(found, s)
	}
	return found, rejected, nil
}
