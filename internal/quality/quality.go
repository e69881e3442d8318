// Package quality implements the declarative data-quality gates that guard
// promotion between storage tiers. A gate is an ordered rule list evaluated
// fail-fast: the first failing rule aborts the run.
package quality

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/timegrid-io/timegrid/pkg/adapter"
)

// Kind declares what a rule's observed count must satisfy.
type Kind int

const (
	// MustBeZero fails when the rule query returns a count above zero,
	// e.g. null foreign keys or duplicate natural keys.
	MustBeZero Kind = iota
	// MustBeNonzero fails when the rule query returns zero,
	// e.g. row-count floors on populated tables.
	MustBeNonzero
)

// Rule is a single named assertion. Query must return one integer count.
type Rule struct {
	Name    string
	Query   string
	Kind    Kind
	Message string
}

// Querier is the minimal read surface a gate needs. Both *sql.DB and
// *sql.Tx satisfy it, so gates run inside the stage transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GateError is the fatal outcome of a failed rule.
type GateError struct {
	Tier    string
	Rule    string
	Count   int64
	Message string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("quality gate %s: rule %s failed: %s (count: %d)", e.Tier, e.Rule, e.Message, e.Count)
}

// SchemaMismatchError reports production column-type drift.
type SchemaMismatchError struct {
	Table    string
	Column   string
	Expected string
	Actual   string
}

func (e *SchemaMismatchError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("column %q not found in %q", e.Column, e.Table)
	}
	return fmt.Sprintf("data type mismatch for column %q in %q: expected %q, found %q",
		e.Column, e.Table, e.Expected, e.Actual)
}

// Gate evaluates an ordered rule list against one tier.
type Gate struct {
	Tier   string
	Rules  []Rule
	logger *slog.Logger
}

// NewGate creates a gate. A nil logger discards output.
func NewGate(tier string, rules []Rule, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gate{Tier: tier, Rules: rules, logger: logger}
}

// Run evaluates the rules strictly in order and stops at the first failure.
// Rules after a failure never execute.
func (g *Gate) Run(ctx context.Context, q Querier) error {
	g.logger.Info("running quality gate", "tier", g.Tier, "rules", len(g.Rules))

	for _, r := range g.Rules {
		var count int64
		if err := q.QueryRowContext(ctx, r.Query).Scan(&count); err != nil {
			return fmt.Errorf("quality gate %s: rule %s: %w", g.Tier, r.Name, err)
		}

		failed := (r.Kind == MustBeZero && count != 0) || (r.Kind == MustBeNonzero && count == 0)
		if failed {
			g.logger.Error("quality check failed",
				"tier", g.Tier, "rule", r.Name, "count", count, "message", r.Message)
			return &GateError{Tier: g.Tier, Rule: r.Name, Count: count, Message: r.Message}
		}

		g.logger.Info("quality check passed", "tier", g.Tier, "rule", r.Name)
	}

	return nil
}

// ColumnType pairs a column with its expected information_schema data type.
type ColumnType struct {
	Column string
	Type   string
}

// TableTypes lists the expected column types of one table, in check order.
type TableTypes struct {
	Schema  string
	Table   string
	Columns []ColumnType
}

// MetadataReader supplies column metadata for a table. Database adapters
// satisfy it.
type MetadataReader interface {
	GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error)
}

// CheckColumnTypes verifies that every expected column exists with the exact
// declared type. The first discrepancy aborts with a SchemaMismatchError.
func CheckColumnTypes(ctx context.Context, meta MetadataReader, expected []TableTypes, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	for _, tbl := range expected {
		qualified := tbl.Schema + "." + tbl.Table
		logger.Info("checking column types", "schema", tbl.Schema, "table", tbl.Table)

		md, err := meta.GetTableMetadata(ctx, qualified)
		if err != nil {
			return fmt.Errorf("type check %s: %w", qualified, err)
		}
		actual := make(map[string]string, len(md.Columns))
		for _, c := range md.Columns {
			actual[c.Name] = c.Type
		}

		for _, col := range tbl.Columns {
			got, ok := actual[col.Column]
			if !ok {
				return &SchemaMismatchError{Table: qualified, Column: col.Column, Expected: col.Type}
			}
			if got != col.Type {
				logger.Error("data type mismatch",
					"table", qualified, "column", col.Column,
					"expected", col.Type, "actual", got)
				return &SchemaMismatchError{
					Table: qualified, Column: col.Column,
					Expected: col.Type, Actual: got,
				}
			}
			logger.Debug("data type check passed",
				"table", qualified, "column", col.Column, "type", got)
		}
	}
	return nil
}
