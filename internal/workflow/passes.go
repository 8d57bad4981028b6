package workflow

import (
	"context"
	"os"

	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/mapping"
	"github.com/sandily/bidskit/internal/participants"
	"github.com/sandily/bidskit/internal/services"
	"github.com/sandily/bidskit/internal/walker"
)

// template converts every unit and records unseen descriptions, then writes
// the translator unless one already exists.
func (r *runner) template(ctx context.Context, units []walker.Unit, m mapping.Mapping) error {
	for _, unit := range units {
		unitCtx := services.WithStage(services.WithUnit(ctx, unit.Subject, unit.Session), "convert")
		if !r.prepare(unitCtx, unit) {
			continue
		}
		added, err := r.organizer.RecordTemplates(unitCtx, unit, m)
		if err != nil {
			r.unitFailed(unitCtx, unit, "template", err)
			continue
		}
		r.summary.NewDescriptions += added
	}

	written, err := mapping.Persist(r.cfg.MappingPath(), m, r.logger)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "persist translator", r.cfg.MappingPath(), err)
	}
	r.summary.MappingWritten = written
	if !written && r.summary.NewDescriptions > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "translator already exists; new descriptions were not added", "translator_not_updated",
			logging.String("path", r.cfg.MappingPath()),
			logging.Int("new_descriptions", r.summary.NewDescriptions),
			logging.String(logging.FieldImpact, "series with these descriptions are skipped until they are mapped"),
			logging.String(logging.FieldErrorHint, "add the descriptions by hand or delete the translator to regenerate it"),
		)
	}
	return nil
}

// organize populates the source tree from every unit's working directory.
func (r *runner) organize(ctx context.Context, units []walker.Unit, m mapping.Mapping) error {
	logger := logging.WithContext(ctx, r.logger)
	written, err := participants.EnsureDatasetDescription(r.cfg.Paths.SourceDir, r.cfg.Dataset)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "dataset description", r.cfg.Paths.SourceDir, err)
	}
	r.summary.DatasetDescriptionWritten = written

	table, err := participants.Create(r.cfg.Paths.SourceDir)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "participants table", r.cfg.Paths.SourceDir, err)
	}
	defer func() {
		if err := table.Close(); err != nil {
			logger.Warn("participants table close failed", logging.Error(err))
		}
	}()

	for _, unit := range units {
		unitCtx := services.WithUnit(ctx, unit.Subject, unit.Session)
		if !table.Has(unit.Subject) {
			demo, err := participants.ReadDemographics(unit.RawDir, r.parse)
			if err != nil {
				return err
			}
			if _, err := table.Append(unit.Subject, demo); err != nil {
				return services.Wrap(services.ErrConfiguration, "workflow", "participants row", unit.Label(), err)
			}
			logging.WithContext(unitCtx, r.logger).Debug("participant recorded",
				logging.String("sex", demo.Sex),
				logging.String("age", demo.Age),
				logging.String("dicom_file", demo.Source),
			)
		}

		if !r.prepare(services.WithStage(unitCtx, "convert"), unit) {
			continue
		}
		organizeCtx := services.WithStage(unitCtx, "organize")
		report, err := r.organizer.OrganizeUnit(organizeCtx, unit, m)
		if err != nil {
			r.unitFailed(organizeCtx, unit, "organize", err)
			continue
		}
		r.summary.Reports = append(r.summary.Reports, report)
		r.cleanup(organizeCtx, unit)
	}
	r.summary.Participants = table.Rows()
	return nil
}

// prepare converts unit when needed and reports whether it can be processed.
func (r *runner) prepare(ctx context.Context, unit walker.Unit) bool {
	converted, err := r.walker.Prepare(ctx, unit)
	if converted && err == nil {
		r.summary.Converted++
	}
	if err != nil {
		r.unitFailed(ctx, unit, "convert", err)
		return false
	}
	return true
}

func (r *runner) unitFailed(ctx context.Context, unit walker.Unit, step string, err error) {
	r.summary.FailedUnits++
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), "unit "+step+" failed; continuing with next unit", "unit_failed",
		logging.String("unit", unit.Label()),
		logging.Error(err),
		logging.String(logging.FieldImpact, "unit skipped for this run"),
		logging.String(logging.FieldErrorHint, "fix the reported problem and re-run; completed units are not redone"),
	)
}

func (r *runner) cleanup(ctx context.Context, unit walker.Unit) {
	logger := logging.WithContext(ctx, r.logger)
	if !r.cfg.Conversion.CleanupWork {
		logger.Debug("preserving working directory", logging.String("work_dir", unit.WorkDir))
		return
	}
	if err := os.RemoveAll(unit.WorkDir); err != nil {
		logger.Warn("working directory cleanup failed", logging.String("work_dir", unit.WorkDir), logging.Error(err))
		return
	}
	logger.Info("working directory removed", logging.String("work_dir", unit.WorkDir))
}
