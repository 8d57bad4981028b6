package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandily/bidskit/internal/mapping"
)

func newMappingCommand(ctx *commandContext) *cobra.Command {
	mappingCmd := &cobra.Command{
		Use:     "mapping",
		Aliases: []string{"translator"},
		Short:   "Inspect the protocol translator",
	}
	mappingCmd.AddCommand(newMappingShowCommand(ctx))
	mappingCmd.AddCommand(newMappingValidateCommand(ctx))
	return mappingCmd
}

func loadMapping(ctx *commandContext) (mapping.Mapping, string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	path := cfg.MappingPath()
	m, err := mapping.Load(path)
	if err != nil {
		return nil, path, err
	}
	return m, path, nil
}

type mappingEntryJSON struct {
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Suffix      string   `json:"suffix"`
	LinkedTo    []string `json:"linked_to,omitempty"`
	Excluded    bool     `json:"excluded"`
}

func newMappingShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List translator entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, path, err := loadMapping(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				entries := make([]mappingEntryJSON, 0, len(m))
				for _, desc := range m.Descriptions() {
					e := m[desc]
					item := mappingEntryJSON{Description: desc, Category: e.Category, Suffix: e.Suffix, Excluded: e.Excluded()}
					if e.LinkedTo.Assigned() {
						item.LinkedTo = e.LinkedTo.Stems
					}
					entries = append(entries, item)
				}
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(m) == 0 {
				fmt.Fprintf(out, "No translator entries at %s; run `bidskit convert` to create a template\n", path)
				return nil
			}
			rows := make([][]string, 0, len(m))
			for _, desc := range m.Descriptions() {
				e := m[desc]
				linked := "-"
				if e.LinkedTo.Assigned() {
					linked = strings.Join(e.LinkedTo.Stems, ", ")
				}
				rows = append(rows, []string{desc, e.Category, e.Suffix, linked})
			}
			fmt.Fprintln(out, path)
			fmt.Fprintln(out, renderTable([]string{"Description", "Category", "Suffix", "Linked"}, rows, 0))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output entries as JSON")
	return cmd
}

func newMappingValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report translator entries that will not organize as expected",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, path, err := loadMapping(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			status := newStatusPrinter(out)
			problems := mapping.Validate(m)
			errorsFound := 0
			for _, p := range problems {
				kind := statusWarn
				if p.Severity == mapping.SeverityError {
					kind = statusError
					errorsFound++
				}
				status.line(p.Description, kind, p.Message)
			}
			if errorsFound > 0 {
				return fmt.Errorf("%s: %d translator error(s)", path, errorsFound)
			}
			fmt.Fprintf(out, "%s: %d entries, %d warning(s)\n", path, len(m), len(problems))
			return nil
		},
	}
}
