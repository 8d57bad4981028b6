package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/sandily/bidskit/internal/config"
	"github.com/sandily/bidskit/internal/ledger"
	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/mapping"
	"github.com/sandily/bidskit/internal/organizer"
	"github.com/sandily/bidskit/internal/participants"
	"github.com/sandily/bidskit/internal/preflight"
	"github.com/sandily/bidskit/internal/services"
	"github.com/sandily/bidskit/internal/services/dcm2niix"
	"github.com/sandily/bidskit/internal/walker"
)

// ErrLocked is returned when another run holds the dataset lock.
var ErrLocked = errors.New("another bidskit run is using this dataset")

type runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	walker    *walker.Walker
	organizer *organizer.Organizer
	ledger    *ledger.Store
	parse     participants.ParseFunc
	summary   Summary
}

// Run executes one pass over the dataset described by opts.Config.
func Run(ctx context.Context, opts Options) (Summary, error) {
	cfg := opts.Config
	if cfg == nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "workflow", "run", "config is required", nil)
	}
	logger := logging.NewComponentLogger(opts.Logger, "workflow")

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, runID)
	summary := Summary{RunID: runID, MappingPath: cfg.MappingPath(), StartedAt: time.Now()}

	workTreeExisted := dirExists(cfg.Paths.WorkDir)
	if err := cfg.EnsureDirectories(); err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "workflow", "bootstrap", "Cannot create dataset directories", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return summary, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return summary, fmt.Errorf("%w (lock %s)", ErrLocked, cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release dataset lock", logging.Error(err))
		}
	}()

	m, err := mapping.Load(cfg.MappingPath())
	if err != nil {
		return summary, err
	}
	summary.Pass = selectPass(m, workTreeExisted)

	units, err := walker.Enumerate(walker.Layout{
		DicomDir:  cfg.Paths.DicomDir,
		WorkDir:   cfg.Paths.WorkDir,
		SourceDir: cfg.Paths.SourceDir,
		Sessions:  cfg.Conversion.Sessions,
	})
	if err != nil {
		return summary, err
	}
	summary.Units = len(units)

	if err := preflight.Failed(preflight.RunAll(ctx, cfg, needsConversion(units))); err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "workflow", "preflight", "Readiness checks failed", err)
	}

	converter := opts.Converter
	if converter == nil {
		client, err := dcm2niix.New(cfg.ConverterBinary(), cfg.Conversion.ConverterTimeout, dcm2niix.WithCompression(cfg.Conversion.Compress))
		if err != nil {
			return summary, services.Wrap(services.ErrConfiguration, "workflow", "converter", "Cannot build converter", err)
		}
		converter = client
	}

	r := &runner{
		cfg:     cfg,
		logger:  logger,
		walker:  walker.New(converter, opts.Logger),
		parse:   opts.ParseDICOM,
		summary: summary,
	}
	r.openLedger(ctx)
	defer r.closeLedger()

	var recorder organizer.Recorder
	if r.ledger != nil {
		recorder = r.ledger
	}
	r.organizer = organizer.New(cfg.Conversion.Overwrite, recorder, opts.Logger)

	logging.WithContext(ctx, logger).Info("bidskit run starting",
		logging.Int("pass", r.summary.Pass.Number()),
		logging.String("pass_name", string(r.summary.Pass)),
		logging.String("dicom_dir", cfg.Paths.DicomDir),
		logging.String("source_dir", cfg.Paths.SourceDir),
		logging.String("derivatives_dir", cfg.Paths.DerivativesDir),
		logging.String("work_dir", cfg.Paths.WorkDir),
		logging.Bool("sessions", cfg.Conversion.Sessions),
		logging.Bool("overwrite", cfg.Conversion.Overwrite),
		logging.Int("units", len(units)),
		logging.String(logging.FieldEventType, "run_started"),
	)

	if r.summary.Pass == PassOrganize {
		err = r.organize(ctx, units, m)
	} else {
		err = r.template(ctx, units, m)
	}
	r.summary.FinishedAt = time.Now()
	r.finishLedger(ctx, err)

	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, logger), "bidskit run aborted", "run_aborted",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the reported problem and re-run; files already placed are kept"),
		)
		return r.summary, err
	}
	totals := r.summary.Totals()
	logging.WithContext(ctx, logger).Info("bidskit run complete",
		logging.Int("pass", r.summary.Pass.Number()),
		logging.Int("units", r.summary.Units),
		logging.Int("converted", r.summary.Converted),
		logging.Int("created", totals.Created),
		logging.Int("replaced", totals.Replaced),
		logging.Int("preserved", totals.Preserved),
		logging.Int("skipped", totals.Skipped),
		logging.Int("warnings", totals.Warnings),
		logging.String("duration", r.summary.Duration().Round(time.Millisecond).String()),
		logging.String(logging.FieldEventType, "run_completed"),
	)
	return r.summary, nil
}

// selectPass picks the organize pass only when the translator has entries and
// a working tree from an earlier run exists.
func selectPass(m mapping.Mapping, workTreeExisted bool) Pass {
	if len(m) > 0 && workTreeExisted {
		return PassOrganize
	}
	return PassTemplate
}

func needsConversion(units []walker.Unit) bool {
	for _, u := range units {
		if !dirExists(u.WorkDir) {
			return true
		}
	}
	return false
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
