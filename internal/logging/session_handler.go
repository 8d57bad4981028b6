package logging

import (
	"context"
	"log/slog"
)

// FieldSessionID carries the run id on every record of one invocation, so the
// console, the per-run file and the ledger can be correlated.
const FieldSessionID = "session_id"

// stampHandler adds a fixed attribute to each record just before it is handled.
type stampHandler struct {
	slog.Handler
	stamp slog.Attr
}

func newSessionIDHandler(base slog.Handler, sessionID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	return stampHandler{Handler: base, stamp: slog.String(FieldSessionID, sessionID)}
}

func (h stampHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(h.stamp)
	return h.Handler.Handle(ctx, record)
}

func (h stampHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return stampHandler{Handler: h.Handler.WithAttrs(attrs), stamp: h.stamp}
}

func (h stampHandler) WithGroup(name string) slog.Handler {
	return stampHandler{Handler: h.Handler.WithGroup(name), stamp: h.stamp}
}
