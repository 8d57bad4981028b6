package organizer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sandily/bidskit/internal/bids"
	"github.com/sandily/bidskit/internal/ledger"
	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/mapping"
	"github.com/sandily/bidskit/internal/materialize"
	"github.com/sandily/bidskit/internal/purpose"
	"github.com/sandily/bidskit/internal/series"
	"github.com/sandily/bidskit/internal/services"
	"github.com/sandily/bidskit/internal/sidecar"
	"github.com/sandily/bidskit/internal/walker"
)

// Recorder receives every placement decision. The ledger store satisfies it.
type Recorder interface {
	RecordPlacement(ctx context.Context, p ledger.Placement) error
}

// Organizer places the series of one unit at a time.
type Organizer struct {
	transformer  *purpose.Transformer
	materializer *materialize.Materializer
	reader       *sidecar.Reader
	recorder     Recorder
	logger       *slog.Logger
}

// New builds an organizer with the given overwrite policy. recorder may be nil.
func New(overwrite bool, recorder Recorder, logger *slog.Logger) *Organizer {
	reader := sidecar.NewReader(0)
	return &Organizer{
		transformer:  purpose.NewTransformer(sidecar.NewStitcher(reader, logger), logger),
		materializer: materialize.New(overwrite, logger),
		reader:       reader,
		recorder:     recorder,
		logger:       logging.NewComponentLogger(logger, "organizer"),
	}
}

// RecordTemplates adds a template entry for every description found in the
// unit's working directory and returns how many were new.
func (o *Organizer) RecordTemplates(ctx context.Context, unit walker.Unit, m mapping.Mapping) (int, error) {
	logger := logging.WithContext(ctx, o.logger)
	found, rejected, err := series.Discover(unit.WorkDir)
	if err != nil {
		return 0, services.Wrap(services.ErrNotFound, "organize", "discover series", unit.Label(), err)
	}
	o.reportRejected(logger, rejected)
	added := 0
	for _, s := range found {
		if _, ok := m.Lookup(s.Description); ok {
			continue
		}
		m.RecordTemplate(s.Description)
		added++
		logger.Debug("recorded series description", logging.String("description", s.Description))
	}
	return added, nil
}

// OrganizeUnit places every mapped series of unit into its destination directory.
// The returned error is non-nil only when the working directory cannot be read.
func (o *Organizer) OrganizeUnit(ctx context.Context, unit walker.Unit, m mapping.Mapping) (UnitReport, error) {
	ctx = services.WithUnit(ctx, unit.Subject, unit.Session)
	logger := logging.WithContext(ctx, o.logger)
	defer o.reader.Purge()

	report := UnitReport{Unit: unit}
	found, rejected, err := series.Discover(unit.WorkDir)
	if err != nil {
		return report, services.Wrap(services.ErrNotFound, "organize", "discover series", unit.Label(), err)
	}
	o.reportRejected(logger, rejected)
	report.Rejected = len(rejected)
	report.Warnings += len(rejected)
	report.Series = len(found)

	runs := series.AssignRuns(found)
	for i, s := range found {
		o.organizeSeries(services.WithSeries(ctx, s.Stem), unit, m, s, runs.Run(i), &report)
	}

	logger.Info("unit organized",
		logging.Int("series", report.Series),
		logging.Int("created", report.Created),
		logging.Int("replaced", report.Replaced),
		logging.Int("preserved", report.Preserved),
		logging.Int("excluded", report.Excluded),
		logging.Int("skipped", report.Skipped),
		logging.Int("warnings", report.Warnings),
		logging.String(logging.FieldEventType, "unit_organized"),
	)
	return report, nil
}

func (o *Organizer) organizeSeries(ctx context.Context, unit walker.Unit, m mapping.Mapping, s series.Series, run int, report *UnitReport) {
	logger := logging.WithContext(ctx, o.logger)

	entry, ok := m.Lookup(s.Description)
	if !ok {
		report.skip()
		logging.WarnWithContext(logger, "series description missing from protocol translator; skipping", "series_unmapped",
			logging.String("description", s.Description),
			logging.String(logging.FieldImpact, "series not placed in the source tree"),
			logging.String(logging.FieldErrorHint, "add the description to the protocol translator and re-run"),
		)
		return
	}
	if entry.Excluded() {
		report.Excluded++
		attrs := append(logging.DecisionAttrs("series_placement", "excluded", "translator category "+entry.Category),
			logging.String("description", s.Description),
			logging.String(logging.FieldEventType, "series_excluded"),
		)
		logger.Info("series excluded by protocol translator", logging.Args(attrs...)...)
		return
	}
	category, ok := mapping.ParseCategory(entry.Category)
	if !ok {
		report.skip()
		logging.WarnWithContext(logger, "unknown output category; skipping", "category_unknown",
			logging.String("description", s.Description),
			logging.String("category", entry.Category),
			logging.String(logging.FieldImpact, "series not placed in the source tree"),
			logging.String(logging.FieldErrorHint, "use one of func, fmap, anat, dwi"),
		)
		return
	}
	meta, err := o.reader.Read(s.SidecarPath())
	if err != nil {
		report.skip()
		logging.WarnWithContext(logger, "sidecar unreadable; skipping series", "sidecar_missing",
			logging.String("sidecar", s.SidecarPath()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "series not placed in the source tree"),
			logging.String(logging.FieldErrorHint, "re-run the converter for this unit by removing its working directory"),
		)
		return
	}

	plan, err := o.transformer.Transform(ctx, purpose.Request{
		Series:   s,
		Entry:    entry,
		Category: category,
		Prefix:   unit.Prefix(),
		DestDir:  unit.DestDir,
		Run:      run,
		Metadata: meta,
	})
	if err != nil {
		report.skip()
		logging.WarnWithContext(logger, "series transform failed", "series_transform_failed", logging.Error(err))
		return
	}
	logger.Debug("series planned",
		logging.String("description", s.Description),
		logging.String("category", category.String()),
		logging.Int("run", run),
		logging.String("note", plan.Note),
	)
	if plan.Discarded() {
		report.Discarded++
		attrs := append(logging.DecisionAttrs("series_placement", "discarded", plan.Note),
			logging.String("description", s.Description),
			logging.String(logging.FieldEventType, "series_discarded"),
		)
		logger.Info("series produces no output", logging.Args(attrs...)...)
		return
	}

	rec := placementRecorder{o: o, unit: unit, series: s, category: category, report: report}
	if plan.Image != nil {
		outcome, err := o.materializer.Place(ctx, plan.Image.Source, plan.Image.Destination)
		if err != nil {
			report.skip()
			logging.WarnWithContext(logger, "image placement failed; skipping series", "image_place_failed",
				logging.String("destination", plan.Image.Destination),
				logging.Error(err),
			)
			return
		}
		rec.record(ctx, purpose.KindImage, plan.Image.Destination, outcome)
	}
	if plan.SidecarPath != "" {
		outcome, err := o.materializer.WriteJSON(ctx, plan.SidecarPath, plan.Metadata)
		if err != nil {
			report.Warnings++
			logging.WarnWithContext(logger, "sidecar write failed", "sidecar_write_failed",
				logging.String("destination", plan.SidecarPath),
				logging.Error(err),
			)
		} else {
			rec.record(ctx, purpose.KindSidecar, plan.SidecarPath, outcome)
		}
	}
	if plan.EventsPath != "" {
		outcome, err := o.materializer.WriteContent(ctx, plan.EventsPath, []byte(bids.EventsTemplate))
		if err != nil {
			report.Warnings++
			logging.WarnWithContext(logger, "events template write failed", "events_write_failed",
				logging.String("destination", plan.EventsPath),
				logging.Error(err),
			)
		} else {
			rec.record(ctx, purpose.KindEvents, plan.EventsPath, outcome)
		}
	}
	for _, companion := range plan.Companions {
		outcome, err := o.materializer.Place(ctx, companion.Source, companion.Destination)
		if err != nil {
			report.Warnings++
			hint := "check the converter output for this series"
			if errors.Is(err, services.ErrNotFound) {
				hint = "the converter did not write a gradient table; the diffusion set is incomplete"
			}
			logging.WarnWithContext(logger, "diffusion companion not placed", "companion_missing",
				logging.String("kind", string(companion.Kind)),
				logging.String("source", companion.Source),
				logging.Error(err),
				logging.String(logging.FieldImpact, "image placed without its "+string(companion.Kind)+" table"),
				logging.String(logging.FieldErrorHint, hint),
			)
			continue
		}
		rec.record(ctx, companion.Kind, companion.Destination, outcome)
	}
}

func (o *Organizer) reportRejected(logger *slog.Logger, rejected []series.Rejected) {
	for _, r := range rejected {
		logging.WarnWithContext(logger, "unparseable converter filename; ignoring", "series_malformed",
			logging.String("path", r.Path),
			logging.Error(r.Err),
			logging.String(logging.FieldImpact, "file not considered for placement"),
			logging.String(logging.FieldErrorHint, "converter output must be named subject--description--sequence--number"),
		)
	}
}

type placementRecorder struct {
	o        *Organizer
	unit     walker.Unit
	series   series.Series
	category mapping.Category
	report   *UnitReport
}

func (r placementRecorder) record(ctx context.Context, kind purpose.ArtifactKind, dest string, outcome materialize.Outcome) {
	r.report.count(outcome)
	r.report.Placements = append(r.report.Placements, Placement{Kind: kind, Destination: dest, Outcome: outcome})
	if r.o.recorder == nil {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	err := r.o.recorder.RecordPlacement(ctx, ledger.Placement{
		RunID:       runID,
		Subject:     r.unit.Subject,
		Session:     r.unit.Session,
		Series:      r.series.Stem,
		Description: r.series.Description,
		Category:    r.category.String(),
		Kind:        string(kind),
		Destination: dest,
		Outcome:     string(outcome),
		CreatedAt:   time.Now(),
	})
	if err != nil {
		logging.WithContext(ctx, r.o.logger).Debug("ledger placement write failed", logging.Error(err))
	}
}
