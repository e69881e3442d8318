package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/timegrid-io/timegrid/internal/config"
	"github.com/timegrid-io/timegrid/internal/pipeline"
	"github.com/timegrid-io/timegrid/internal/scripts"
	"github.com/timegrid-io/timegrid/internal/state"
	"github.com/timegrid-io/timegrid/internal/warehouse"
	"github.com/timegrid-io/timegrid/pkg/adapter"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline",
		Long: `Extract, validate, and clean both source exports, load the raw tier,
refresh staging, build the star schema, and publish to production.
Every tier is quality-gated; the first failing check aborts the run.`,
		Example: `  # Run against the configured target
  timegrid run

  # Run with explicit source files
  timegrid run --allocations-path float.csv --timesheets-path clickup.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg.Verbose)

			db, err := adapter.New(cfg.Target.AdapterConfig(), logger)
			if err != nil {
				return err
			}
			if err := db.Connect(cmd.Context(), cfg.Target.AdapterConfig()); err != nil {
				return err
			}
			defer db.Close()

			store, err := openStateStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			wh := warehouse.New(db, scripts.NewProvider(cfg.ScriptsDir), logger)
			engine := pipeline.New(cfg, wh, store, logger)

			startTime := time.Now()
			run, err := engine.Run(cmd.Context())
			if run != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %s\n", run.ID, run.Status)
				if run.Error != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Error: %s\n", run.Error)
				}
			}
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Completed in %s\n", time.Since(startTime).Round(time.Millisecond))
			return nil
		},
	}
}

// openStateStore opens and migrates the run state database.
func openStateStore(cfg *config.ProjectConfig) (*state.SQLiteStore, error) {
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
