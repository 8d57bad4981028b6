package workflow

import (
	"context"

	"github.com/sandily/bidskit/internal/ledger"
	"github.com/sandily/bidskit/internal/logging"
)

// openLedger attaches the run ledger. Ledger failures never stop a run.
func (r *runner) openLedger(ctx context.Context) {
	if !r.cfg.Ledger.Enabled {
		return
	}
	logger := logging.WithContext(ctx, r.logger)
	store, err := ledger.Open(r.cfg.Ledger.Path)
	if err != nil {
		logging.WarnWithContext(logger, "ledger unavailable; run history will not be recorded", "ledger_unavailable",
			logging.String("path", r.cfg.Ledger.Path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "bidskit history will not show this run"),
		)
		return
	}
	err = store.BeginRun(ctx, ledger.Run{
		RunID:     r.summary.RunID,
		Pass:      string(r.summary.Pass),
		DicomDir:  r.cfg.Paths.DicomDir,
		SourceDir: r.cfg.Paths.SourceDir,
		StartedAt: r.summary.StartedAt,
	})
	if err != nil {
		logger.Warn("ledger run insert failed", logging.Error(err))
		_ = store.Close()
		return
	}
	r.ledger = store
}

func (r *runner) finishLedger(ctx context.Context, runErr error) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.FinishRun(ctx, r.summary.RunID, r.summary.Totals(), runErr); err != nil {
		logging.WithContext(ctx, r.logger).Warn("ledger run update failed", logging.Error(err))
	}
}

func (r *runner) closeLedger() {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.Close(); err != nil {
		r.logger.Warn("ledger close failed", logging.Error(err))
	}
}
