package materialize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/services"
	"github.com/sandily/bidskit/internal/sidecar"
)

// Action is the decision taken for one destination.
type Action int

const (
	ActionCreate Action = iota
	ActionOverwrite
	ActionSkip
)

// Decide maps destination existence and the overwrite policy to an action.
func Decide(exists, overwrite bool) Action {
	switch {
	case !exists:
		return ActionCreate
	case overwrite:
		return ActionOverwrite
	default:
		return ActionSkip
	}
}

// Outcome reports what happened to a destination.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeReplaced  Outcome = "replaced"
	OutcomePreserved Outcome = "preserved"
)

func (a Action) outcome() Outcome {
	switch a {
	case ActionCreate:
		return OutcomeCreated
	case ActionOverwrite:
		return OutcomeReplaced
	default:
		return OutcomePreserved
	}
}

// Materializer writes artifacts honouring one overwrite policy.
type Materializer struct {
	overwrite bool
	logger    *slog.Logger
}

// New builds a materializer.
func New(overwrite bool, logger *slog.Logger) *Materializer {
	return &Materializer{overwrite: overwrite, logger: logging.NewComponentLogger(logger, "materializer")}
}

// Overwrite reports the configured policy.
func (m *Materializer) Overwrite() bool {
	return m.overwrite
}

// Place copies src to dst. A missing source is reported as ErrNotFound.
func (m *Materializer) Place(ctx context.Context, src, dst string) (Outcome, error) {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "materialize", "place", "Source file missing: "+src, err)
		}
		return "", services.Wrap(services.ErrValidation, "materialize", "place", "Cannot read "+src, err)
	}
	return m.apply(ctx, dst, "copy", func() error {
		return copyFileVerified(src, dst)
	})
}

// WriteJSON serializes meta to dst. Sidecars are always re-encoded from the
// in-memory metadata, never byte-copied from the working directory.
func (m *Materializer) WriteJSON(ctx context.Context, dst string, meta sidecar.Metadata) (Outcome, error) {
	data, err := meta.Marshal()
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "materialize", "encode sidecar", dst, err)
	}
	return m.WriteContent(ctx, dst, data)
}

// WriteContent writes content to dst.
func (m *Materializer) WriteContent(ctx context.Context, dst string, content []byte) (Outcome, error) {
	return m.apply(ctx, dst, "write", func() error {
		return writeFileAtomic(dst, content)
	})
}

func (m *Materializer) apply(ctx context.Context, dst, verb string, write func() error) (Outcome, error) {
	logger := logging.WithContext(ctx, m.logger)
	exists, err := fileExists(dst)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "materialize", "stat", dst, err)
	}
	action := Decide(exists, m.overwrite)
	outcome := action.outcome()
	if action == ActionSkip {
		logger.Info("preserving existing file",
			logging.String("destination", dst),
			logging.String(logging.FieldEventType, "artifact_preserved"),
		)
		return outcome, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", services.Wrap(services.ErrValidation, "materialize", "mkdir", filepath.Dir(dst), err)
	}
	if err := write(); err != nil {
		return "", services.Wrap(services.ErrValidation, "materialize", verb, dst, err)
	}
	logger.Info(fmt.Sprintf("%s file", outcome),
		logging.String("destination", dst),
		logging.String(logging.FieldEventType, "artifact_"+string(outcome)),
	)
	return outcome, nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return false, fmt.Errorf("%s is a directory", path)
		}
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
