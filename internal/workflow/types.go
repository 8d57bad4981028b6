package workflow

import (
	"log/slog"
	"time"

	"github.com/sandily/bidskit/internal/config"
	"github.com/sandily/bidskit/internal/ledger"
	"github.com/sandily/bidskit/internal/organizer"
	"github.com/sandily/bidskit/internal/participants"
	"github.com/sandily/bidskit/internal/services/dcm2niix"
)

// Pass identifies which of the two workflow passes ran.
type Pass string

const (
	PassTemplate Pass = "template"
	PassOrganize Pass = "organize"
)

// Number returns 1 for the template pass and 2 for the organize pass.
func (p Pass) Number() int {
	if p == PassOrganize {
		return 2
	}
	return 1
}

// Options configures a run. Config is required; every other field has a
// production default.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// Converter overrides the dcm2niix client built from Config.
	Converter dcm2niix.Converter
	// ParseDICOM overrides the DICOM header reader used for demographics.
	ParseDICOM participants.ParseFunc
	// RunID overrides the generated run identifier.
	RunID string
}

// Summary describes a finished run.
type Summary struct {
	RunID       string
	Pass        Pass
	MappingPath string
	// MappingWritten is set when the template pass created the translator.
	MappingWritten  bool
	NewDescriptions int
	Units           int
	Converted       int
	FailedUnits     int
	Participants    int
	// DatasetDescriptionWritten is set when the descriptor was created.
	DatasetDescriptionWritten bool
	Reports                   []organizer.UnitReport
	StartedAt                 time.Time
	FinishedAt                time.Time
}

// Totals aggregates unit reports into ledger counters.
func (s Summary) Totals() ledger.Totals {
	totals := ledger.Totals{Units: s.Units, Warnings: s.FailedUnits}
	for _, r := range s.Reports {
		totals.Created += r.Created
		totals.Replaced += r.Replaced
		totals.Preserved += r.Preserved
		totals.Skipped += r.Skipped
		totals.Warnings += r.Warnings
	}
	return totals
}

// Duration returns the wall-clock time of the run.
func (s Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
