package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandily/bidskit/internal/config"
	"github.com/sandily/bidskit/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs, or the placements of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openLedgerReadOnly(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if store == nil {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd, store, args[0], jsonOutput)
			}
			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.RunID,
					r.Pass,
					string(r.Status),
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					formatDuration(r.Duration()),
					strconv.Itoa(r.Totals.Units),
					strconv.Itoa(r.Totals.Created),
					strconv.Itoa(r.Totals.Preserved),
					strconv.Itoa(r.Totals.Warnings),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Pass", "Status", "Started", "Duration", "Units", "Created", "Preserved", "Warnings"},
				rows,
				4,
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func showRun(cmd *cobra.Command, store *ledger.Store, runID string, jsonOutput bool) error {
	run, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	placements, err := store.Placements(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, struct {
			Run        *ledger.Run        `json:"run"`
			Placements []ledger.Placement `json:"placements"`
		}{run, placements})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s, %s)\n", run.RunID, run.Pass, run.Status)
	if run.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", run.Error)
	}
	if len(placements) == 0 {
		fmt.Fprintln(out, "No placements recorded")
		return nil
	}
	rows := make([][]string, 0, len(placements))
	for _, p := range placements {
		unit := "sub-" + p.Subject
		if p.Session != "" {
			unit += "/ses-" + p.Session
		}
		rows = append(rows, []string{unit, p.Description, p.Kind, p.Outcome, p.Destination})
	}
	fmt.Fprintln(out, renderTable([]string{"Unit", "Description", "Kind", "Outcome", "Destination"}, rows, 0))
	return nil
}

// openLedgerReadOnly returns nil when no ledger has been written yet, so
// listing history never creates an empty database.
func openLedgerReadOnly(cfg *config.Config) (*ledger.Store, error) {
	if !cfg.Ledger.Enabled {
		return nil, errors.New("ledger disabled in configuration")
	}
	if _, err := os.Stat(cfg.Ledger.Path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return ledger.Open(cfg.Ledger.Path)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
