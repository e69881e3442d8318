// Package cli provides the command-line interface for timegrid.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/timegrid-io/timegrid/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "timegrid",
		Short: "Timegrid - Time Tracking Warehouse Pipeline",
		Long: `Timegrid loads Float allocation and ClickUp timesheet exports into a
tiered warehouse: validated raw tables, staging views, a dimensional star
schema, and quality-gated production tables.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./timegrid.yaml)")
	rootCmd.PersistentFlags().String("allocations-path", "", "Path to the Float allocations CSV export")
	rootCmd.PersistentFlags().String("timesheets-path", "", "Path to the ClickUp timesheets CSV export")
	rootCmd.PersistentFlags().String("processed-dir", "", "Directory for processed CSV exports")
	rootCmd.PersistentFlags().String("state-path", "", "Path to the run state database")
	rootCmd.PersistentFlags().StringP("environment", "e", "", "Environment name")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewRunsCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// loadConfig builds the effective configuration for a command.
func loadConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	return config.Load(cfgFile, cmd.Root().PersistentFlags())
}

// newLogger builds the slog logger used by all commands.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
