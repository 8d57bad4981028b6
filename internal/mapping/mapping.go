package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
)

const (
	// ExcludePrefix marks a category that must never be materialized.
	ExcludePrefix = "EXCLUDE"
	// ExcludeCategory and ExcludeSuffix are the template placeholders.
	ExcludeCategory = "EXCLUDE_BIDS_Directory"
	ExcludeSuffix   = "EXCLUDE_BIDS_Name"
	// Unassigned is the linked-series sentinel.
	Unassigned = "UNASSIGNED"
)

// Mapping associates a series description with its output rule.
type Mapping map[string]Entry

// Entry is one row of the protocol translator, serialized as
// ["<category>", "<suffix>", <links>].
type Entry struct {
	Category string
	Suffix   string
	LinkedTo Links
}

// TemplateEntry returns the placeholder recorded for a newly seen description.
func TemplateEntry() Entry {
	return Entry{Category: ExcludeCategory, Suffix: ExcludeSuffix, LinkedTo: Links{Stems: []string{Unassigned}}}
}

// Excluded reports whether the entry's category carries the exclusion marker.
func (e Entry) Excluded() bool {
	return strings.HasPrefix(e.Category, ExcludePrefix)
}

// MarshalJSON encodes the entry as a three-element array.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Category, e.Suffix, e.LinkedTo})
}

// UnmarshalJSON decodes the three-element array form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("entry must be a [category, suffix, linked] array: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("entry must have 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.Category); err != nil {
		return fmt.Errorf("category: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Suffix); err != nil {
		return fmt.Errorf("suffix: %w", err)
	}
	if err := json.Unmarshal(raw[2], &e.LinkedTo); err != nil {
		return fmt.Errorf("linked series: %w", err)
	}
	return nil
}

// Links is the third entry element: the sentinel, one description stem, or a
// list of stems. IsList preserves which JSON form the operator wrote.
type Links struct {
	Stems  []string
	IsList bool
}

// Assigned reports whether any linked series was configured.
func (l Links) Assigned() bool {
	if len(l.Stems) == 0 {
		return false
	}
	if !l.IsList {
		return !strings.Contains(l.Stems[0], Unassigned)
	}
	return !slices.Contains(l.Stems, Unassigned)
}

func (l Links) MarshalJSON() ([]byte, error) {
	if !l.IsList {
		if len(l.Stems) == 0 {
			return json.Marshal(Unassigned)
		}
		return json.Marshal(l.Stems[0])
	}
	stems := l.Stems
	if stems == nil {
		stems = []string{}
	}
	return json.Marshal(stems)
}

func (l *Links) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var stems []string
		if err := json.Unmarshal(data, &stems); err != nil {
			return err
		}
		*l = Links{Stems: stems, IsList: true}
		return nil
	}
	var stem string
	if err := json.Unmarshal(data, &stem); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = Links{Stems: []string{stem}}
	return nil
}

// RecordTemplate inserts a template entry for description unless one exists,
// and returns the entry now stored. Existing entries are never changed.
func (m Mapping) RecordTemplate(description string) Entry {
	if entry, ok := m[description]; ok {
		return entry
	}
	entry := TemplateEntry()
	m[description] = entry
	return entry
}

// Lookup returns the entry for description.
func (m Mapping) Lookup(description string) (Entry, bool) {
	entry, ok := m[description]
	return entry, ok
}

// Descriptions returns the mapped descriptions in sorted order.
func (m Mapping) Descriptions() []string {
	out := make([]string, 0, len(m))
	for desc := range m {
		out = append(out, desc)
	}
	sort.Strings(out)
	return out
}
