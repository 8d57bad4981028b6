package preflight

import (
	"context"
	"errors"
	"strings"

	"github.com/sandily/bidskit/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks never fail a run.
	Optional bool
}

// RunAll executes all preflight checks for the given config. The converter is
// only required when units still need converting, so the caller decides via
// requireConverter.
func RunAll(ctx context.Context, cfg *config.Config, requireConverter bool) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckBinaries(ctx, Requirements(cfg, requireConverter)) {
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Detail:   status.describe(),
			Optional: status.Optional,
		})
	}

	results = append(results, CheckReadable("DICOM directory", cfg.Paths.DicomDir))
	results = append(results, CheckWritable("Source directory", cfg.Paths.SourceDir))
	results = append(results, CheckWritable("Working directory", cfg.Paths.WorkDir))
	results = append(results, CheckWritable("Derivatives directory", cfg.Paths.DerivativesDir))
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		log := CheckWritable("Log directory", cfg.Paths.LogDir)
		log.Optional = true
		results = append(results, log)
	}
	return results
}

// Failed joins the details of every failed required check, or returns nil.
func Failed(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Passed || r.Optional {
			continue
		}
		errs = append(errs, errors.New(r.Name+": "+r.Detail))
	}
	return errors.Join(errs...)
}
