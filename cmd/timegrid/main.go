// Package main provides the timegrid CLI.
package main

import (
	"os"

	"github.com/timegrid-io/timegrid/internal/cli"

	// Register warehouse adapters.
	_ "github.com/timegrid-io/timegrid/pkg/adapters/duckdb"
	_ "github.com/timegrid-io/timegrid/pkg/adapters/postgres"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
