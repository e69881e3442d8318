// Package warehouse executes the pipeline's database-facing stage
// operations. Every stage runs inside a single transaction so a failure
// midway leaves the prior tier's committed state untouched.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/timegrid-io/timegrid/internal/model"
	"github.com/timegrid-io/timegrid/internal/quality"
	"github.com/timegrid-io/timegrid/internal/scripts"
	"github.com/timegrid-io/timegrid/pkg/adapter"
)

// Store performs tiered warehouse operations over a database adapter.
type Store struct {
	db      adapter.Adapter
	scripts scripts.Provider
	logger  *slog.Logger
}

// New creates a warehouse store. A nil logger discards output.
func New(db adapter.Adapter, provider scripts.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, scripts: provider, logger: logger}
}

// CreateRawSchema creates the raw/staging/prod schemas and raw tables.
func (s *Store) CreateRawSchema(ctx context.Context) error {
	s.logger.Info("creating schemas and raw tables")
	return s.runScript(ctx, scripts.CreateRawSchema)
}

// RefreshStagingViews creates and refreshes the staging materialized views.
func (s *Store) RefreshStagingViews(ctx context.Context) error {
	s.logger.Info("creating and refreshing staging materialized views")
	return s.runScript(ctx, scripts.CreateStagingViews)
}

// CreateStarSchema creates the empty staging star-schema tables.
func (s *Store) CreateStarSchema(ctx context.Context) error {
	s.logger.Info("creating staging star schema tables")
	return s.runScript(ctx, scripts.CreateStagingStar)
}

// PublishProduction rebuilds the prod tables from the staging star schema.
func (s *Store) PublishProduction(ctx context.Context) error {
	s.logger.Info("loading star schema into prod")
	return s.runScript(ctx, scripts.LoadProdSchema)
}

// VerifyProductionTypes checks the published prod tables against the
// declared column-type contract via the adapter's metadata surface.
func (s *Store) VerifyProductionTypes(ctx context.Context) error {
	s.logger.Info("verifying production column types")
	return quality.CheckColumnTypes(ctx, s.db, quality.ProductionTypes(), s.logger)
}

// runScript executes one named script transactionally.
func (s *Store) runScript(ctx context.Context, key string) error {
	text, err := s.scripts.Script(key)
	if err != nil {
		return err
	}
	return s.inTx(ctx, key, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, text); err != nil {
			return fmt.Errorf("script %s: %w", key, err)
		}
		return nil
	})
}

// LoadRaw rebuilds both raw tables from the cleaned batches in one
// transaction.
func (s *Store) LoadRaw(ctx context.Context, allocs []model.AllocationRecord, sheets []model.TimesheetRecord) error {
	s.logger.Info("loading raw tier", "allocations", len(allocs), "timesheets", len(sheets))

	return s.inTx(ctx, "load_raw", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM raw.float_allocations"); err != nil {
			return fmt.Errorf("failed to clear raw.float_allocations: %w", err)
		}
		insertAlloc := s.insertStmt("raw.float_allocations",
			[]string{"client", "project", "role", "name", "task", "start_date", "end_date", "estimated_hours"})
		for _, a := range allocs {
			if _, err := tx.ExecContext(ctx, insertAlloc,
				a.Client, a.Project, a.Role, a.Name, a.Task, a.StartDate, a.EndDate, a.EstimatedHours); err != nil {
				return fmt.Errorf("failed to insert into raw.float_allocations: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM raw.clickup_timesheets"); err != nil {
			return fmt.Errorf("failed to clear raw.clickup_timesheets: %w", err)
		}
		insertSheet := s.insertStmt("raw.clickup_timesheets",
			[]string{"client", "project", "name", "task", "date", "hours", "note", "billable"})
		for _, r := range sheets {
			if _, err := tx.ExecContext(ctx, insertSheet,
				r.Client, r.Project, r.Name, r.Task, r.Date, r.Hours, r.Note, r.Billable); err != nil {
				return fmt.Errorf("failed to insert into raw.clickup_timesheets: %w", err)
			}
		}
		return nil
	})
}

// LoadStarSchema populates the staging dimension and fact tables in one
// transaction. Dimensions first so fact foreign keys resolve.
func (s *Store) LoadStarSchema(ctx context.Context, star *model.StarSchema) error {
	s.logger.Info("populating staging star schema",
		"dates", len(star.Dates), "team_members", len(star.TeamMembers),
		"projects", len(star.Projects), "tasks", len(star.Tasks), "facts", len(star.Facts))

	return s.inTx(ctx, "load_star_schema", func(tx *sql.Tx) error {
		insertDate := s.insertStmt("staging.dim_date",
			[]string{"date_id", "date", "day_of_week", "day", "month", "year", "is_weekend"})
		for _, d := range star.Dates {
			if _, err := tx.ExecContext(ctx, insertDate,
				d.DateID, d.Date, d.DayOfWeek, d.Day, d.Month, d.Year, d.IsWeekend); err != nil {
				return fmt.Errorf("failed to insert into staging.dim_date: %w", err)
			}
		}

		insertMember := s.insertStmt("staging.dim_team_member", []string{"team_member_id", "name", "role"})
		for _, m := range star.TeamMembers {
			if _, err := tx.ExecContext(ctx, insertMember, m.TeamMemberID, m.Name, m.Role); err != nil {
				return fmt.Errorf("failed to insert into staging.dim_team_member: %w", err)
			}
		}

		insertProject := s.insertStmt("staging.dim_project", []string{"project_id", "project_name", "client"})
		for _, p := range star.Projects {
			if _, err := tx.ExecContext(ctx, insertProject, p.ProjectID, p.ProjectName, p.Client); err != nil {
				return fmt.Errorf("failed to insert into staging.dim_project: %w", err)
			}
		}

		insertTask := s.insertStmt("staging.dim_task", []string{"task_id", "task_name"})
		for _, tk := range star.Tasks {
			if _, err := tx.ExecContext(ctx, insertTask, tk.TaskID, tk.TaskName); err != nil {
				return fmt.Errorf("failed to insert into staging.dim_task: %w", err)
			}
		}

		insertFact := s.insertStmt("staging.fact_timesheet",
			[]string{"date_id", "team_member_id", "project_id", "task_id", "log_hours", "est_project_hours", "is_billable"})
		for _, f := range star.Facts {
			if _, err := tx.ExecContext(ctx, insertFact,
				f.DateID, f.TeamMemberID, f.ProjectID, f.TaskID, f.LogHours, f.EstProjectHours, f.IsBillable); err != nil {
				return fmt.Errorf("failed to insert into staging.fact_timesheet: %w", err)
			}
		}
		return nil
	})
}

// Gate evaluates fn inside a read transaction so rule evaluation sees one
// consistent snapshot. The transaction is always rolled back.
func (s *Store) Gate(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	return fn(tx)
}

// inTx runs fn in a transaction, rolling back on any error.
func (s *Store) inTx(ctx context.Context, stage string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("stage %s: %w", stage, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", "stage", stage, "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("stage %s: failed to commit: %w", stage, err)
	}
	return nil
}

// insertStmt builds an INSERT with driver-appropriate placeholders.
func (s *Store) insertStmt(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = s.db.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}
