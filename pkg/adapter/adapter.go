// Package adapter defines the database adapter contract for the warehouse
// store. Concrete implementations live in pkg/adapters/ subdirectories and
// register themselves by type name.
package adapter

import (
	"context"
	"database/sql"
)

// Config holds connection settings for a database target.
type Config struct {
	Type string // postgres, duckdb

	// File-based databases (DuckDB); empty for in-memory
	Path string

	// Network databases
	Host     string
	Port     int
	Username string
	Password string
	Database string

	// Additional driver-specific options (e.g. sslmode)
	Options map[string]string
}

// Column describes one column of a table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// Metadata describes a table: its columns in ordinal order and row count.
type Metadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Adapter is the interface all database adapters implement. Stage operations
// run inside transactions obtained from Begin, so a failure mid-stage leaves
// the prior tier's committed state untouched.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Begin starts a transaction for a pipeline stage.
	Begin(ctx context.Context) (*sql.Tx, error)

	// GetTableMetadata retrieves column metadata for a table
	// ("schema.table" or bare name).
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// Placeholder formats the driver's positional parameter syntax
	// ("$1" for postgres, "?" for duckdb). n is 1-based.
	Placeholder(n int) string
}
