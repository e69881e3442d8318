package quality

import "log/slog"

// Tier names used in gate diagnostics.
const (
	TierRaw        = "raw"
	TierStaging    = "staging"
	TierProduction = "production"
)

// RawGate guards promotion out of the raw tier: critical columns populated,
// no duplicate timesheet combinations, cross-source referential integrity,
// and numeric ranges.
func RawGate(logger *slog.Logger) *Gate {
	rules := []Rule{
		{Name: "no_null_allocation_name", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM raw.float_allocations WHERE name IS NULL",
			Message: "missing values in 'name' of raw.float_allocations"},
		{Name: "no_null_allocation_project", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM raw.float_allocations WHERE project IS NULL",
			Message: "missing values in 'project' of raw.float_allocations"},
		{Name: "no_null_timesheet_project", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM raw.clickup_timesheets WHERE project IS NULL",
			Message: "missing values in 'project' of raw.clickup_timesheets"},
		{Name: "no_null_timesheet_name", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM raw.clickup_timesheets WHERE name IS NULL",
			Message: "missing values in 'name' of raw.clickup_timesheets"},
		{Name: "no_null_timesheet_date", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM raw.clickup_timesheets WHERE date IS NULL",
			Message: "missing values in 'date' of raw.clickup_timesheets"},
		{Name: "no_duplicate_timesheets", Kind: MustBeZero,
			Query: `SELECT COUNT(*) FROM (
				SELECT client, name, project, task, date
				FROM raw.clickup_timesheets
				GROUP BY client, name, project, task, date
				HAVING COUNT(*) > 1) d`,
			Message: "duplicate entries in raw.clickup_timesheets for client/name/project/task/date"},
		{Name: "timesheet_members_allocated", Kind: MustBeZero,
			Query: `SELECT COUNT(DISTINCT name) FROM raw.clickup_timesheets
				WHERE name NOT IN (SELECT DISTINCT name FROM raw.float_allocations)`,
			Message: "team members in ClickUp timesheets that do not exist in Float allocations"},
		{Name: "allocation_hours_in_range", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM raw.float_allocations WHERE NOT (estimated_hours >= 0)",
			Message: "invalid values in 'estimated_hours' of raw.float_allocations"},
		{Name: "timesheet_hours_in_range", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM raw.clickup_timesheets WHERE NOT (hours >= 0)",
			Message: "invalid values in 'hours' of raw.clickup_timesheets"},
	}
	return NewGate(TierRaw, rules, logger)
}

// StagingGate guards the staging star schema before production publish.
func StagingGate(logger *slog.Logger) *Gate {
	rules := []Rule{
		{Name: "no_null_date_id", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM staging.fact_timesheet WHERE date_id IS NULL",
			Message: "null values in 'date_id' of staging.fact_timesheet"},
		{Name: "no_null_team_member_id", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM staging.fact_timesheet WHERE team_member_id IS NULL",
			Message: "null values in 'team_member_id' of staging.fact_timesheet"},
		{Name: "no_null_project_id", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM staging.fact_timesheet WHERE project_id IS NULL",
			Message: "null values in 'project_id' of staging.fact_timesheet"},
		{Name: "no_null_task_id", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM staging.fact_timesheet WHERE task_id IS NULL",
			Message: "null values in 'task_id' of staging.fact_timesheet"},
		{Name: "unique_team_members", Kind: MustBeZero,
			Query:   "SELECT COUNT(name) - COUNT(DISTINCT name) FROM staging.dim_team_member",
			Message: "duplicate entries in staging.dim_team_member"},
		{Name: "unique_projects", Kind: MustBeZero,
			Query:   "SELECT COUNT(project_name) - COUNT(DISTINCT project_name) FROM staging.dim_project",
			Message: "duplicate entries in staging.dim_project"},
		{Name: "unique_tasks", Kind: MustBeZero,
			Query:   "SELECT COUNT(task_name) - COUNT(DISTINCT task_name) FROM staging.dim_task",
			Message: "duplicate entries in staging.dim_task"},
		{Name: "team_member_fk_resolves", Kind: MustBeZero,
			Query: `SELECT COUNT(*) FROM staging.fact_timesheet ft
				LEFT JOIN staging.dim_team_member tm ON ft.team_member_id = tm.team_member_id
				WHERE tm.team_member_id IS NULL`,
			Message: "'team_member_id' in fact_timesheet not found in dim_team_member"},
		{Name: "project_fk_resolves", Kind: MustBeZero,
			Query: `SELECT COUNT(*) FROM staging.fact_timesheet ft
				LEFT JOIN staging.dim_project dp ON ft.project_id = dp.project_id
				WHERE dp.project_id IS NULL`,
			Message: "'project_id' in fact_timesheet not found in dim_project"},
		{Name: "task_fk_resolves", Kind: MustBeZero,
			Query: `SELECT COUNT(*) FROM staging.fact_timesheet ft
				LEFT JOIN staging.dim_task dt ON ft.task_id = dt.task_id
				WHERE dt.task_id IS NULL`,
			Message: "'task_id' in fact_timesheet not found in dim_task"},
		{Name: "no_negative_log_hours", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM staging.fact_timesheet WHERE log_hours < 0",
			Message: "negative values in 'log_hours' of staging.fact_timesheet"},
		{Name: "no_negative_est_hours", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM staging.fact_timesheet WHERE est_project_hours < 0",
			Message: "negative values in 'est_project_hours' of staging.fact_timesheet"},
		{Name: "log_hours_ceiling", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM staging.fact_timesheet WHERE log_hours > 1000",
			Message: "unrealistically high values in 'log_hours' of staging.fact_timesheet"},
		{Name: "log_within_estimate", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM staging.fact_timesheet WHERE log_hours > est_project_hours",
			Message: "'log_hours' exceeds 'est_project_hours' in staging.fact_timesheet"},
	}
	return NewGate(TierStaging, rules, logger)
}

// ProductionGate performs the final validation before the run is marked
// complete: row-count floors, null checks, and foreign-key resolution.
// Column-type conformance runs separately via CheckColumnTypes.
func ProductionGate(logger *slog.Logger) *Gate {
	rules := []Rule{
		{Name: "dim_team_member_populated", Kind: MustBeNonzero,
			Query:   "SELECT COUNT(*) FROM prod.dim_team_member",
			Message: "row count floor for prod.dim_team_member"},
		{Name: "dim_project_populated", Kind: MustBeNonzero,
			Query:   "SELECT COUNT(*) FROM prod.dim_project",
			Message: "row count floor for prod.dim_project"},
		{Name: "dim_task_populated", Kind: MustBeNonzero,
			Query:   "SELECT COUNT(*) FROM prod.dim_task",
			Message: "row count floor for prod.dim_task"},
		{Name: "dim_date_populated", Kind: MustBeNonzero,
			Query:   "SELECT COUNT(*) FROM prod.dim_date",
			Message: "row count floor for prod.dim_date"},
		{Name: "fact_timesheet_populated", Kind: MustBeNonzero,
			Query:   "SELECT COUNT(*) FROM prod.fact_timesheet",
			Message: "row count floor for prod.fact_timesheet"},
		{Name: "no_null_team_member_id", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM prod.fact_timesheet WHERE team_member_id IS NULL",
			Message: "null values in 'team_member_id' of prod.fact_timesheet"},
		{Name: "no_null_project_id", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM prod.fact_timesheet WHERE project_id IS NULL",
			Message: "null values in 'project_id' of prod.fact_timesheet"},
		{Name: "no_null_task_id", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM prod.fact_timesheet WHERE task_id IS NULL",
			Message: "null values in 'task_id' of prod.fact_timesheet"},
		{Name: "no_null_date_id", Kind: MustBeZero,
			Query:   "SELECT COUNT(*) FROM prod.fact_timesheet WHERE date_id IS NULL",
			Message: "null values in 'date_id' of prod.fact_timesheet"},
		{Name: "team_member_fk_resolves", Kind: MustBeZero,
			Query: `SELECT COUNT(*) FROM prod.fact_timesheet ft
				LEFT JOIN prod.dim_team_member tm ON ft.team_member_id = tm.team_member_id
				WHERE tm.team_member_id IS NULL`,
			Message: "'team_member_id' in fact_timesheet not found in dim_team_member"},
		{Name: "project_fk_resolves", Kind: MustBeZero,
			Query: `SELECT COUNT(*) FROM prod.fact_timesheet ft
				LEFT JOIN prod.dim_project dp ON ft.project_id = dp.project_id
				WHERE dp.project_id IS NULL`,
			Message: "'project_id' in fact_timesheet not found in dim_project"},
		{Name: "task_fk_resolves", Kind: MustBeZero,
			Query: `SELECT COUNT(*) FROM prod.fact_timesheet ft
				LEFT JOIN prod.dim_task dt ON ft.task_id = dt.task_id
				WHERE dt.task_id IS NULL`,
			Message: "'task_id' in fact_timesheet not found in dim_task"},
	}
	return NewGate(TierProduction, rules, logger)
}

// ProductionTypes is the expected column-type contract of the production
// star schema, checked against information_schema after publish.
func ProductionTypes() []TableTypes {
	return []TableTypes{
		{Schema: "prod", Table: "dim_date", Columns: []ColumnType{
			{"date_id", "integer"},
			{"date", "date"},
			{"day_of_week", "text"},
			{"day", "integer"},
			{"month", "integer"},
			{"year", "integer"},
			{"is_weekend", "boolean"},
		}},
		{Schema: "prod", Table: "dim_team_member", Columns: []ColumnType{
			{"team_member_id", "integer"},
			{"name", "text"},
			{"role", "text"},
		}},
		{Schema: "prod", Table: "dim_project", Columns: []ColumnType{
			{"project_id", "integer"},
			{"project_name", "text"},
			{"client", "text"},
		}},
		{Schema: "prod", Table: "dim_task", Columns: []ColumnType{
			{"task_id", "integer"},
			{"task_name", "text"},
		}},
		{Schema: "prod", Table: "fact_timesheet", Columns: []ColumnType{
			{"date_id", "integer"},
			{"team_member_id", "integer"},
			{"project_id", "integer"},
			{"task_id", "integer"},
			{"log_hours", "double precision"},
			{"est_project_hours", "integer"},
			{"is_billable", "boolean"},
		}},
	}
}
