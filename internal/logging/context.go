package logging

import (
	"context"
	"log/slog"

	"github.com/sandily/bidskit/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one invocation of the conversion workflow.
	FieldRunID = "run_id"
	// FieldSubject carries the sub-<label> of the unit being processed.
	FieldSubject = "subject"
	// FieldSession carries the ses-<label> of the unit, when sessions are used.
	FieldSession = "session"
	// FieldSeries carries the series stem currently being organized.
	FieldSeries = "series"
	// FieldStage is the workflow stage (convert, organize, participants).
	FieldStage = "stage"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 5)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if sub, ok := services.SubjectFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSubject, sub))
	}
	if ses, ok := services.SessionFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSession, ses))
	}
	if series, ok := services.SeriesFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSeries, series))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
