package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandily/bidskit/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the converter and dataset directories are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status := newStatusPrinter(cmd.OutOrStdout())
			results := preflight.RunAll(cmd.Context(), cfg, true)
			status.section("Readiness")
			for _, r := range results {
				kind := statusOK
				switch {
				case !r.Passed && r.Optional:
					kind = statusWarn
				case !r.Passed:
					kind = statusError
				}
				status.line(r.Name, kind, r.Detail)
			}
			if err := preflight.Failed(results); err != nil {
				return fmt.Errorf("readiness checks failed: %w", err)
			}
			return nil
		},
	}
}
