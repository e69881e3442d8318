package pipeline

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timegrid-io/timegrid/internal/config"
	"github.com/timegrid-io/timegrid/internal/model"
	"github.com/timegrid-io/timegrid/internal/schema"
	"github.com/timegrid-io/timegrid/internal/state"
)

const allocationsCSV = `Client,Project,Role,Name,Task,Start Date,End Date,Estimated Hours
Acme,Website,Developer,Jane Doe,Build,2024-01-01,2024-01-31,40
Acme,Website,Designer,John Smith,Design,2024-01-01,2024-01-31,20
`

const timesheetsCSV = `Client,Project,Name,Task,Date,Hours,Note,Billable
Acme,Website,Jane Doe,Build,2024-01-02,8,,Yes
Acme,Website,John Smith,Design,2024-01-02,6,sketches,No
`

// fakeWarehouse records the order of warehouse calls. failOn aborts the
// named call with assert.AnError.
type fakeWarehouse struct {
	calls  []string
	failOn string
}

func (f *fakeWarehouse) call(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failOn {
		return assert.AnError
	}
	return nil
}

func (f *fakeWarehouse) CreateRawSchema(context.Context) error       { return f.call("create_raw_schema") }
func (f *fakeWarehouse) RefreshStagingViews(context.Context) error   { return f.call("staging_views") }
func (f *fakeWarehouse) CreateStarSchema(context.Context) error      { return f.call("create_star_schema") }
func (f *fakeWarehouse) PublishProduction(context.Context) error     { return f.call("publish") }
func (f *fakeWarehouse) VerifyProductionTypes(context.Context) error { return f.call("verify_types") }

func (f *fakeWarehouse) LoadRaw(_ context.Context, allocs []model.AllocationRecord, sheets []model.TimesheetRecord) error {
	return f.call("load_raw")
}

func (f *fakeWarehouse) LoadStarSchema(_ context.Context, star *model.StarSchema) error {
	return f.call("load_star_schema")
}

// Gate records the call without invoking fn: rule evaluation is covered by
// the quality package tests.
func (f *fakeWarehouse) Gate(_ context.Context, fn func(tx *sql.Tx) error) error {
	return f.call("gate")
}

func newEngine(t *testing.T, wh Warehouse) (*Engine, *config.ProjectConfig, state.Store) {
	t.Helper()
	dir := t.TempDir()

	allocPath := filepath.Join(dir, "allocations.csv")
	sheetPath := filepath.Join(dir, "timesheets.csv")
	require.NoError(t, os.WriteFile(allocPath, []byte(allocationsCSV), 0o644))
	require.NoError(t, os.WriteFile(sheetPath, []byte(timesheetsCSV), 0o644))

	cfg := &config.ProjectConfig{
		AllocationsPath: allocPath,
		TimesheetsPath:  sheetPath,
		ProcessedDir:    filepath.Join(dir, "processed"),
		Environment:     "test",
	}

	store := state.NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())

	return New(cfg, wh, store, nil), cfg, store
}

func TestRun_ExecutesStagesInOrder(t *testing.T) {
	wh := &fakeWarehouse{}
	engine, cfg, store := newEngine(t, wh)

	run, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusCompleted, run.Status)

	assert.Equal(t, []string{
		"create_raw_schema", "load_raw", "gate",
		"staging_views",
		"create_star_schema", "load_star_schema", "gate",
		"publish", "gate", "verify_types",
	}, wh.calls)

	stages, err := store.ListStages(run.ID)
	require.NoError(t, err)
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Name
		assert.Equal(t, state.StageStatusSuccess, st.Status, st.Name)
	}
	assert.Equal(t, []string{
		StageExtract, StageLoadRaw, StageGateRaw, StageStagingViews,
		StageTransform, StageGateStaging, StagePublish, StageGateProd, StageExport,
	}, names)

	assert.FileExists(t, filepath.Join(cfg.ProcessedDir, "allocations.csv"))
	assert.FileExists(t, filepath.Join(cfg.ProcessedDir, "timesheets.csv"))
}

func TestRun_StageFailureAbortsRun(t *testing.T) {
	wh := &fakeWarehouse{failOn: "staging_views"}
	engine, _, store := newEngine(t, wh)

	run, err := engine.Run(context.Background())
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, state.RunStatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)

	stages, err := store.ListStages(run.ID)
	require.NoError(t, err)
	last := stages[len(stages)-1]
	assert.Equal(t, StageStagingViews, last.Name)
	assert.Equal(t, state.StageStatusFailed, last.Status)

	assert.NotContains(t, wh.calls, "publish", "later stages must not run after a failure")
}

func TestRun_MissingSourceFileFailsExtract(t *testing.T) {
	wh := &fakeWarehouse{}
	engine, cfg, store := newEngine(t, wh)
	cfg.TimesheetsPath = filepath.Join(t.TempDir(), "nope.csv")

	run, err := engine.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, state.RunStatusFailed, run.Status)

	stages, err := store.ListStages(run.ID)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, StageExtract, stages[0].Name)
	assert.Equal(t, state.StageStatusFailed, stages[0].Status)

	assert.Empty(t, wh.calls, "warehouse must stay untouched when extraction fails")
}

func TestRun_AllRowsInvalidIsFatal(t *testing.T) {
	wh := &fakeWarehouse{}
	engine, cfg, _ := newEngine(t, wh)

	bad := "Client,Project,Name,Task,Date,Hours,Note,Billable\nAcme,Website,Jane,Build,01/02/2024,8,,Yes\n"
	require.NoError(t, os.WriteFile(cfg.TimesheetsPath, []byte(bad), 0o644))

	_, err := engine.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, wh.calls)
}

func TestRun_HeaderOnlySourceIsFatal(t *testing.T) {
	wh := &fakeWarehouse{}
	engine, cfg, _ := newEngine(t, wh)

	headerOnly := "Client,Project,Name,Task,Date,Hours,Note,Billable\n"
	require.NoError(t, os.WriteFile(cfg.TimesheetsPath, []byte(headerOnly), 0o644))

	_, err := engine.Run(context.Background())
	require.ErrorIs(t, err, schema.ErrNoValidData)
	assert.Empty(t, wh.calls, "an empty export must never reach the warehouse")
}

func TestPrepareAllocations_SingleSourceUnit(t *testing.T) {
	engine, _, _ := newEngine(t, &fakeWarehouse{})

	allocs, rejected, err := engine.PrepareAllocations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.Len(t, allocs, 2)
	assert.Equal(t, "acme", allocs[0].Client, "cleaning normalizes the client")
	assert.Equal(t, "Jane Doe", allocs[0].Name)
}

func TestValidateSources(t *testing.T) {
	engine, cfg, _ := newEngine(t, &fakeWarehouse{})

	mixed := allocationsCSV + "Acme,Website,Dev,Bad Row,Build,2024-13-99,2024-01-31,40\n"
	require.NoError(t, os.WriteFile(cfg.AllocationsPath, []byte(mixed), 0o644))

	reports, err := engine.ValidateSources()
	require.NoError(t, err)
	require.Len(t, reports, 2)

	allocs := reports[0]
	assert.Equal(t, "allocations", allocs.Source)
	assert.Equal(t, 3, allocs.Total)
	assert.Equal(t, 2, allocs.Valid)
	assert.Equal(t, 2, allocs.Cleaned)
	require.Len(t, allocs.Rejected, 1)

	sheets := reports[1]
	assert.Equal(t, "timesheets", sheets.Source)
	assert.Equal(t, 2, sheets.Valid)
	assert.Empty(t, sheets.Rejected)
}
