package purpose

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/sandily/bidskit/internal/bids"
	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/mapping"
	"github.com/sandily/bidskit/internal/services"
	"github.com/sandily/bidskit/internal/sidecar"
)

// EchoStitcher supplies EchoTime1/EchoTime2 for a phase-difference sidecar.
type EchoStitcher interface {
	EchoTimes(ctx context.Context, phaseSidecarPath string) sidecar.EchoTimes
}

// handler is implemented only inside this package.
type handler interface {
	category() mapping.Category
	apply(ctx context.Context, t *Transformer, req Request, plan *Plan)
}

var handlers = map[mapping.Category]handler{
	mapping.CategoryFunctional: functional{},
	mapping.CategoryFieldmap:   fieldmap{},
	mapping.CategoryAnatomical: anatomical{},
	mapping.CategoryDiffusion:  diffusion{},
}

// Transformer turns requests into plans.
type Transformer struct {
	stitcher EchoStitcher
	logger   *slog.Logger
}

// NewTransformer builds a transformer using stitcher for dual-echo fieldmaps.
func NewTransformer(stitcher EchoStitcher, logger *slog.Logger) *Transformer {
	return &Transformer{stitcher: stitcher, logger: logging.NewComponentLogger(logger, "purpose")}
}

// Transform computes the destination filenames and final metadata for req.
// The request metadata is modified in place and returned in the plan.
func (t *Transformer) Transform(ctx context.Context, req Request) (Plan, error) {
	h, ok := handlers[req.Category]
	if !ok {
		return Plan{}, services.Wrap(services.ErrValidation, "purpose", "dispatch",
			fmt.Sprintf("No handler for category %q", req.Entry.Category), nil)
	}

	suffix := req.Entry.Suffix
	if req.Run > 0 {
		suffix = bids.AddRunNumber(suffix, req.Run)
	}
	image := filepath.Join(req.DestDir, req.Category.Dir(), req.Prefix+suffix+bids.VolumeExt(req.Series.Path))
	metadata := req.Metadata
	if metadata == nil {
		metadata = sidecar.Metadata{}
	}
	plan := Plan{
		Image:       &Copy{Kind: KindImage, Source: req.Series.Path, Destination: image},
		SidecarPath: bids.ReplaceExt(image, bids.SidecarExt),
		Metadata:    metadata,
	}
	req.Metadata = metadata
	h.apply(ctx, t, req, &plan)
	return plan, nil
}

func (t *Transformer) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, t.logger)
}
