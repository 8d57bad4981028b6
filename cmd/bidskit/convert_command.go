package main

import (
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sandily/bidskit/internal/config"
	"github.com/sandily/bidskit/internal/logging"
	"github.com/sandily/bidskit/internal/workflow"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		indir      string
		outdir     string
		noSessions bool
		overwrite  bool
		cleanup    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Run the next conversion pass over the dataset",
		Long: `Convert raw DICOM units and organize them into the BIDS source directory.

The first run converts every unit and writes a template Protocol_Translator.json
into the derivatives directory. Edit that file, then run convert again to
populate the source directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			overrides := config.Overrides{DicomDir: indir, SourceDir: outdir}
			if cmd.Flags().Changed("no-sessions") {
				sessions := !noSessions
				overrides.Sessions = &sessions
			}
			if cmd.Flags().Changed("overwrite") {
				overrides.Overwrite = &overwrite
			}
			if cmd.Flags().Changed("cleanup") {
				overrides.CleanupWork = &cleanup
			}
			if err := cfg.Apply(overrides); err != nil {
				return fmt.Errorf("apply flags: %w", err)
			}

			runID := uuid.NewString()
			logger, err := ctx.newLogger(cfg, runID, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logging.RunLogFilename(runID))

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			summary, runErr := workflow.Run(signalCtx, workflow.Options{Config: cfg, Logger: logger, RunID: runID})
			if runErr != nil {
				return runErr
			}
			if jsonOutput {
				return writeJSON(cmd, summaryJSON(summary))
			}
			printSummary(cmd.OutOrStdout(), cfg, summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&indir, "indir", "i", "", "DICOM root directory (overrides paths.dicom_dir)")
	cmd.Flags().StringVarP(&outdir, "outdir", "o", "", "BIDS source directory (overrides paths.source_dir)")
	cmd.Flags().BoolVar(&noSessions, "no-sessions", false, "Subject directories hold DICOM files directly")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace files already present in the source directory")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "Remove each unit's working directory after organizing")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

type runSummaryJSON struct {
	RunID                     string   `json:"run_id"`
	Pass                      int      `json:"pass"`
	PassName                  string   `json:"pass_name"`
	MappingPath               string   `json:"mapping_path"`
	MappingWritten            bool     `json:"mapping_written"`
	NewDescriptions           int      `json:"new_descriptions"`
	Units                     int      `json:"units"`
	Converted                 int      `json:"converted"`
	FailedUnits               int      `json:"failed_units"`
	Participants              int      `json:"participants"`
	DatasetDescriptionWritten bool     `json:"dataset_description_written"`
	Created                   int      `json:"created"`
	Replaced                  int      `json:"replaced"`
	Preserved                 int      `json:"preserved"`
	Skipped                   int      `json:"skipped"`
	Warnings                  int      `json:"warnings"`
	DurationSeconds           float64  `json:"duration_seconds"`
	UnitLabels                []string `json:"units_organized,omitempty"`
}

func summaryJSON(s workflow.Summary) runSummaryJSON {
	totals := s.Totals()
	out := runSummaryJSON{
		RunID:                     s.RunID,
		Pass:                      s.Pass.Number(),
		PassName:                  string(s.Pass),
		MappingPath:               s.MappingPath,
		MappingWritten:            s.MappingWritten,
		NewDescriptions:           s.NewDescriptions,
		Units:                     s.Units,
		Converted:                 s.Converted,
		FailedUnits:               s.FailedUnits,
		Participants:              s.Participants,
		DatasetDescriptionWritten: s.DatasetDescriptionWritten,
		Created:                   totals.Created,
		Replaced:                  totals.Replaced,
		Preserved:                 totals.Preserved,
		Skipped:                   totals.Skipped,
		Warnings:                  totals.Warnings,
		DurationSeconds:           s.Duration().Seconds(),
	}
	for _, r := range s.Reports {
		out.UnitLabels = append(out.UnitLabels, r.Unit.Label())
	}
	return out
}

func printSummary(out io.Writer, cfg *config.Config, s workflow.Summary) {
	status := newStatusPrinter(out)
	status.section(fmt.Sprintf("Pass %d: %s", s.Pass.Number(), passTitle(s.Pass)))
	status.line("DICOM root", statusInfo, cfg.Paths.DicomDir)
	status.line("Source directory", statusInfo, cfg.Paths.SourceDir)
	status.line("Derivatives directory", statusInfo, cfg.Paths.DerivativesDir)
	status.line("Working directory", statusInfo, cfg.Paths.WorkDir)
	status.line("Session directories", statusInfo, yesNo(cfg.Conversion.Sessions))
	status.line("Overwrite existing", statusInfo, yesNo(cfg.Conversion.Overwrite))

	unitKind := statusOK
	if s.FailedUnits > 0 {
		unitKind = statusWarn
	}
	status.line("Units", unitKind,
		fmt.Sprintf("%d found, %d converted, %d failed", s.Units, s.Converted, s.FailedUnits))

	if s.Pass == workflow.PassTemplate {
		kind, message := statusOK, "template written to "+s.MappingPath
		if !s.MappingWritten {
			kind, message = statusWarn, "existing translator kept at "+s.MappingPath
		}
		status.line("Protocol translator", kind, message)
		status.line("New descriptions", statusInfo, strconv.Itoa(s.NewDescriptions))
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Replace the EXCLUDE_BIDS_* markers in the translator, then run convert again.")
		return
	}

	status.line("Participants", statusOK, strconv.Itoa(s.Participants))
	fmt.Fprintln(out)
	rows := make([][]string, 0, len(s.Reports))
	for _, r := range s.Reports {
		rows = append(rows, []string{
			r.Unit.Label(),
			strconv.Itoa(r.Series),
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Replaced),
			strconv.Itoa(r.Preserved),
			strconv.Itoa(r.Excluded),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Warnings),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Unit", "Series", "Created", "Replaced", "Preserved", "Excluded", "Skipped", "Warnings"},
			rows,
			1,
		))
	}
	fmt.Fprintf(out, "Completed in %s\n", s.Duration().Round(time.Millisecond))
}

func passTitle(p workflow.Pass) string {
	if p == workflow.PassOrganize {
		return "Populating BIDS source directory"
	}
	return "DICOM conversion and translator creation"
}
