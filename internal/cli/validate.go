package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/timegrid-io/timegrid/internal/pipeline"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var showErrors bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate both source exports without loading",
		Long: `Read, validate, and clean the allocation and timesheet exports and
report row counts. Nothing is written to the warehouse.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Verbose)

			engine := pipeline.New(cfg, nil, nil, logger)
			reports, err := engine.ValidateSources()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Source", "Rows", "Valid", "Cleaned", "Rejected"})
			rejected := 0
			for _, r := range reports {
				t.AppendRow(table.Row{r.Source, r.Total, r.Valid, r.Cleaned, len(r.Rejected)})
				rejected += len(r.Rejected)
			}
			t.Render()

			if showErrors && rejected > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
				for _, r := range reports {
					for _, re := range r.Rejected {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", r.Source, re)
					}
				}
			}

			if rejected > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d row(s) would be rejected\n", rejected)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showErrors, "show-errors", false, "Print every rejected row with its reason")
	return cmd
}
