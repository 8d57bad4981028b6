package mapping

import (
	"fmt"
	"strings"
)

// Severity grades a translator problem.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Problem describes one entry that will not produce the output the operator
// probably expects.
type Problem struct {
	Description string
	Severity    Severity
	Message     string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s: %s", p.Severity, p.Description, p.Message)
}

// Validate inspects every entry without modifying the mapping. Unedited
// template entries are warnings; entries that would be skipped or produce
// unusable filenames are errors.
func Validate(m Mapping) []Problem {
	var problems []Problem
	add := func(desc string, sev Severity, format string, args ...any) {
		problems = append(problems, Problem{Description: desc, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}
	for _, desc := range m.Descriptions() {
		entry := m[desc]
		if entry.Excluded() {
			if entry.Category == ExcludeCategory && entry.Suffix == ExcludeSuffix {
				add(desc, SeverityWarning, "still carries the template exclusion; series will not be organized")
			}
			continue
		}
		category, ok := ParseCategory(entry.Category)
		if !ok {
			add(desc, SeverityError, "unknown category %q (want func, fmap, anat or dwi)", entry.Category)
		}
		suffix := strings.TrimSpace(entry.Suffix)
		switch {
		case suffix == "":
			add(desc, SeverityError, "empty filename suffix")
		case strings.HasPrefix(suffix, ExcludePrefix):
			add(desc, SeverityError, "category is set but suffix %q still carries the exclusion marker", suffix)
		case strings.ContainsAny(suffix, `/\ `):
			add(desc, SeverityError, "suffix %q must not contain separators or spaces", suffix)
		}
		if entry.LinkedTo.Assigned() {
			if category != CategoryFieldmap {
				add(desc, SeverityWarning, "linked series are only written for fmap entries")
			}
			for _, stem := range entry.LinkedTo.Stems {
				if strings.TrimSpace(stem) == "" {
					add(desc, SeverityError, "empty linked series stem")
				}
			}
		}
	}
	return problems
}
