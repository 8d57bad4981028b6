package purpose

import (
	"context"

	"github.com/sandily/bidskit/internal/bids"
	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/mapping"
	"github.com/sandily/bidskit/internal/series"
	"github.com/sandily/bidskit/internal/sidecar"
)

type functional struct{}

func (functional) category() mapping.Category { return mapping.CategoryFunctional }

func (functional) apply(ctx context.Context, t *Transformer, req Request, plan *Plan) {
	if req.Series.SequenceFamily != series.SequenceEchoPlanar {
		return
	}
	plan.Note = "EPI detected"
	plan.EventsPath = bids.EventsPath(plan.Image.Destination)
	task, ok := bids.ParseKeys(plan.Image.Destination)["task"]
	if !ok {
		task = sidecar.UnknownTask
	}
	plan.Metadata[sidecar.KeyTaskName] = task
	t.log(ctx).Debug("task name set", logging.String("task", task))
}

type fieldmap struct{}

func (fieldmap) category() mapping.Category { return mapping.CategoryFieldmap }

func (fieldmap) apply(ctx context.Context, t *Transformer, req Request, plan *Plan) {
	if linked, ok := sidecar.ResolveLinks(req.Prefix, bids.VolumeExt(req.Series.Path), req.Entry.LinkedTo); ok {
		plan.Metadata[sidecar.KeyIntendedFor] = linked
	}

	logger := t.log(ctx)
	switch req.Series.SequenceFamily {
	case series.SequenceGradientEcho:
		echo, hasEcho := plan.Metadata.EchoNumber()
		switch {
		case !hasEcho:
			plan.Note = "GRE echo 1 magnitude"
			plan.Image.Destination = bids.AppendEntity(plan.Image.Destination, "magnitude")
			plan.SidecarPath = ""
		case echo == 2 && plan.Metadata.IsPhase():
			plan.Note = "GRE phase difference"
			plan.Image.Destination = bids.AppendEntity(plan.Image.Destination, "phasediff")
			plan.SidecarPath = bids.AppendEntity(plan.SidecarPath, "phasediff")
			if t.stitcher != nil {
				t.stitcher.EchoTimes(ctx, req.Series.SidecarPath()).Apply(plan.Metadata)
			}
		case echo == 2:
			plan.Note = "GRE echo 2 magnitude discarded"
			plan.Image = nil
			plan.SidecarPath = ""
		default:
			plan.Note = "GRE fieldmap"
		}
	case series.SequenceEchoPlanar:
		plan.Note = "SE-EPI fieldmap"
	default:
		plan.Note = "unrecognized fieldmap"
		logging.WarnWithContext(logger, "unrecognized fieldmap sequence; copying image and sidecar unchanged", "fieldmap_unrecognized",
			logging.String("sequence", req.Series.SequenceFamily),
			logging.String(logging.FieldImpact, "no magnitude/phase separation applied"),
			logging.String(logging.FieldErrorHint, "verify the fmap entry in the protocol translator"),
		)
	}
}

type anatomical struct{}

func (anatomical) category() mapping.Category { return mapping.CategoryAnatomical }

func (anatomical) apply(_ context.Context, _ *Transformer, req Request, plan *Plan) {
	switch req.Series.SequenceFamily {
	case series.SequenceInversionGR:
		plan.Note = "IR-prepared GRE, likely T1w MP-RAGE"
	case series.SequenceSpinEcho:
		plan.Note = "spin echo, likely T1w or T2w"
	case series.SequenceGradientEcho:
		plan.Note = "gradient echo"
	}
}

type diffusion struct{}

func (diffusion) category() mapping.Category { return mapping.CategoryDiffusion }

func (diffusion) apply(_ context.Context, _ *Transformer, req Request, plan *Plan) {
	plan.Note = "diffusion series"
	plan.Companions = []Copy{
		{Kind: KindBval, Source: req.Series.CompanionPath(bids.BvalExt), Destination: bids.ReplaceExt(plan.SidecarPath, bids.BvalExt)},
		{Kind: KindBvec, Source: req.Series.CompanionPath(bids.BvecExt), Destination: bids.ReplaceExt(plan.SidecarPath, bids.BvecExt)},
	}
}
