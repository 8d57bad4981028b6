package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sandily/bidskit/internal/bids"
	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/services"
	"github.com/sandily/bidskit/internal/services/dcm2niix"
)

// Unit is one subject, or subject/session, processed as an atomic step.
type Unit struct {
	Subject string
	// Session is empty in session-less layouts.
	Session string
	RawDir  string
	WorkDir string
	DestDir string
}

// Prefix returns the unit's output filename prefix.
func (u Unit) Prefix() string {
	return bids.Prefix(u.Subject, u.Session)
}

// Label returns "sub-X" or "sub-X/ses-Y" for logs and reports.
func (u Unit) Label() string {
	if u.Session == "" {
		return bids.SubjectDir(u.Subject)
	}
	return bids.SubjectDir(u.Subject) + "/" + bids.SessionDir(u.Session)
}

// Layout locates the raw, working and destination trees.
type Layout struct {
	DicomDir  string
	WorkDir   string
	SourceDir string
	Sessions  bool
}

// Enumerate lists every unit under the DICOM root in lexical order.
func Enumerate(layout Layout) ([]Unit, error) {
	subjects, err := listDirs(layout.DicomDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "walk", "list subjects", "Cannot read DICOM directory "+layout.DicomDir, err)
	}
	var units []Unit
	for _, subject := range subjects {
		subjectRaw := filepath.Join(layout.DicomDir, subject)
		if !layout.Sessions {
			units = append(units, newUnit(layout, subject, "", subjectRaw))
			continue
		}
		sessions, err := listDirs(subjectRaw)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "walk", "list sessions", "Cannot read subject directory "+subjectRaw, err)
		}
		for _, session := range sessions {
			units = append(units, newUnit(layout, subject, session, filepath.Join(subjectRaw, session)))
		}
	}
	return units, nil
}

func newUnit(layout Layout, subject, session, raw string) Unit {
	work := filepath.Join(layout.WorkDir, bids.SubjectDir(subject))
	dest := filepath.Join(layout.SourceDir, bids.SubjectDir(subject))
	if session != "" {
		work = filepath.Join(work, bids.SessionDir(session))
		dest = filepath.Join(dest, bids.SessionDir(session))
	}
	return Unit{Subject: subject, Session: session, RawDir: raw, WorkDir: work, DestDir: dest}
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Walker converts units on demand.
type Walker struct {
	converter dcm2niix.Converter
	logger    *slog.Logger
}

// New builds a walker using converter for units without a working directory.
func New(converter dcm2niix.Converter, logger *slog.Logger) *Walker {
	return &Walker{converter: converter, logger: logging.NewComponentLogger(logger, "walker")}
}

// Prepare ensures the unit's working directory holds converted series. It
// reports whether the converter ran. A failed conversion removes the partial
// working directory so the next run retries it.
func (w *Walker) Prepare(ctx context.Context, unit Unit) (bool, error) {
	logger := logging.WithContext(ctx, w.logger)
	info, err := os.Stat(unit.WorkDir)
	switch {
	case err == nil && info.IsDir():
		logger.Debug("working directory present; skipping conversion", logging.String("work_dir", unit.WorkDir))
		return false, nil
	case err == nil:
		return false, services.Wrap(services.ErrValidation, "convert", "prepare", unit.WorkDir+" exists but is not a directory", nil)
	case !errors.Is(err, fs.ErrNotExist):
		return false, services.Wrap(services.ErrValidation, "convert", "prepare", "Cannot inspect "+unit.WorkDir, err)
	}

	if w.converter == nil {
		return false, services.Wrap(services.ErrConfiguration, "convert", "prepare", "no converter configured", nil)
	}
	logger.Info("converting DICOM images",
		logging.String("raw_dir", unit.RawDir),
		logging.String("work_dir", unit.WorkDir),
		logging.String(logging.FieldEventType, "conversion_started"),
	)
	result, err := w.converter.Convert(ctx, unit.RawDir, unit.WorkDir)
	if err != nil {
		if rmErr := os.RemoveAll(unit.WorkDir); rmErr != nil {
			logger.Debug("remove partial working directory failed", logging.Error(rmErr))
		}
		return true, fmt.Errorf("convert %s: %w", unit.Label(), err)
	}
	for _, warning := range result.Warnings {
		logger.Debug("converter warning", logging.String("line", warning))
	}
	logger.Info("conversion complete",
		logging.Int("series_converted", result.Converted),
		logging.Int("converter_warnings", len(result.Warnings)),
		logging.String("duration", result.Duration.String()),
		logging.String(logging.FieldEventType, "conversion_completed"),
	)
	return true, nil
}
