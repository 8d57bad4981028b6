package sidecar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"strings"
)

// Recognized sidecar keys.
const (
	KeyEchoTime    = "EchoTime"
	KeyEchoTime1   = "EchoTime1"
	KeyEchoTime2   = "EchoTime2"
	KeyEchoNumber  = "EchoNumber"
	KeyImageType   = "ImageType"
	KeyTaskName    = "TaskName"
	KeyIntendedFor = "IntendedFor"
)

// UnknownTask is written as TaskName when the output filename has no task entity.
const UnknownTask = "unknown"

// Metadata is a decoded sidecar. Numbers are kept as json.Number so values the
// converter wrote pass through without float reformatting.
type Metadata map[string]any

// Decode parses a sidecar document.
func Decode(data []byte) (Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m Metadata
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		m = Metadata{}
	}
	return m, nil
}

// ReadFile loads and decodes the sidecar at path.
func ReadFile(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode sidecar %s: %w", path, err)
	}
	return m, nil
}

// Marshal encodes the metadata with four-space indentation.
func (m Metadata) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Clone returns a copy whose top-level keys can be changed independently.
func (m Metadata) Clone() Metadata {
	return maps.Clone(m)
}

// EchoTime returns the raw EchoTime value.
func (m Metadata) EchoTime() (json.Number, bool) {
	return numberValue(m[KeyEchoTime])
}

// EchoNumber returns the EchoNumber field; ok is false when it is absent.
func (m Metadata) EchoNumber() (int64, bool) {
	n, ok := numberValue(m[KeyEchoNumber])
	if !ok {
		return 0, false
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return 0, false
		}
		v = int64(f)
	}
	return v, true
}

// ImageTypeAt returns the i-th element of the ImageType tuple.
func (m Metadata) ImageTypeAt(i int) (string, bool) {
	switch values := m[KeyImageType].(type) {
	case []any:
		if i < 0 || i >= len(values) {
			return "", false
		}
		s, ok := values[i].(string)
		return s, ok
	case []string:
		if i < 0 || i >= len(values) {
			return "", false
		}
		return values[i], true
	default:
		return "", false
	}
}

// IsPhase reports whether the ImageType tuple marks a phase image.
func (m Metadata) IsPhase() bool {
	v, ok := m.ImageTypeAt(2)
	return ok && strings.Contains(v, "P")
}

func numberValue(v any) (json.Number, bool) {
	switch n := v.(type) {
	case json.Number:
		return n, true
	case float64:
		return json.Number(fmt.Sprint(n)), true
	case int:
		return json.Number(fmt.Sprint(n)), true
	case int64:
		return json.Number(fmt.Sprint(n)), true
	default:
		return "", false
	}
}
