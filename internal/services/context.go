package services

import "context"

type contextKey string

const (
	runIDKey   contextKey = "run_id"
	subjectKey contextKey = "subject"
	sessionKey contextKey = "session"
	seriesKey  contextKey = "series"
	stageKey   contextKey = "stage"
)

// WithRunID annotates context with the identifier of the current conversion run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithUnit annotates context with the subject and (optional) session being processed.
func WithUnit(ctx context.Context, subject, session string) context.Context {
	if subject != "" {
		ctx = context.WithValue(ctx, subjectKey, subject)
	}
	if session != "" {
		ctx = context.WithValue(ctx, sessionKey, session)
	}
	return ctx
}

// SubjectFromContext returns the subject identifier if present.
func SubjectFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(subjectKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// SessionFromContext returns the session identifier if present.
func SessionFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSeries annotates context with the converter filename stem of a series.
func WithSeries(ctx context.Context, stem string) context.Context {
	if stem == "" {
		return ctx
	}
	return context.WithValue(ctx, seriesKey, stem)
}

// SeriesFromContext returns the series stem if present.
func SeriesFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(seriesKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the workflow stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
