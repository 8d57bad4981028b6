package purpose

import (
	"github.com/sandily/bidskit/internal/mapping"
	"github.com/sandily/bidskit/internal/series"
	"github.com/sandily/bidskit/internal/sidecar"
)

// ArtifactKind names a placed file for reporting and the ledger.
type ArtifactKind string

const (
	KindImage   ArtifactKind = "image"
	KindSidecar ArtifactKind = "sidecar"
	KindBval    ArtifactKind = "bval"
	KindBvec    ArtifactKind = "bvec"
	KindEvents  ArtifactKind = "events"
)

// Request carries one series with its resolved mapping entry.
type Request struct {
	Series   series.Series
	Entry    mapping.Entry
	Category mapping.Category
	// Prefix is the unit's "sub-X_[ses-Y_]" filename prefix.
	Prefix string
	// DestDir is the unit's subject or session directory in the source tree.
	DestDir string
	// Run is the run number from the unit's RunIndex; 0 means no marker.
	Run      int
	Metadata sidecar.Metadata
}

// Copy is a file to copy from the working directory into the source tree.
type Copy struct {
	Kind        ArtifactKind
	Source      string
	Destination string
}

// Plan is the complete set of outputs for one series.
type Plan struct {
	// Image is nil when the series is discarded (echo-2 magnitude).
	Image *Copy
	// SidecarPath is empty when the sidecar is dropped.
	SidecarPath string
	Metadata    sidecar.Metadata
	// EventsPath is set for echo-planar functional series.
	EventsPath string
	// Companions holds the diffusion gradient tables.
	Companions []Copy
	// Note is a short description of what the handler recognized.
	Note string
}

// Discarded reports whether the plan produces no files at all.
func (p Plan) Discarded() bool {
	return p.Image == nil && p.SidecarPath == "" && p.EventsPath == "" && len(p.Companions) == 0
}
