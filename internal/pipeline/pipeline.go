// Package pipeline orchestrates the end-to-end run: extract and validate
// both sources, clean, load the raw tier, refresh staging, build the star
// schema, and publish to production with a quality gate after every load.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/timegrid-io/timegrid/internal/clean"
	"github.com/timegrid-io/timegrid/internal/config"
	"github.com/timegrid-io/timegrid/internal/extract"
	"github.com/timegrid-io/timegrid/internal/model"
	"github.com/timegrid-io/timegrid/internal/quality"
	"github.com/timegrid-io/timegrid/internal/schema"
	"github.com/timegrid-io/timegrid/internal/state"
	"github.com/timegrid-io/timegrid/internal/transform"
)

// Stage names recorded in the run state store, in execution order.
const (
	StageExtract      = "extract"
	StageLoadRaw      = "load_raw"
	StageGateRaw      = "gate_raw"
	StageStagingViews = "staging_views"
	StageTransform    = "transform"
	StageGateStaging  = "gate_staging"
	StagePublish      = "publish"
	StageGateProd     = "gate_prod"
	StageExport       = "export_processed"
)

// Warehouse is the database-facing surface the engine drives.
// *warehouse.Store satisfies it.
type Warehouse interface {
	CreateRawSchema(ctx context.Context) error
	LoadRaw(ctx context.Context, allocs []model.AllocationRecord, sheets []model.TimesheetRecord) error
	RefreshStagingViews(ctx context.Context) error
	CreateStarSchema(ctx context.Context) error
	LoadStarSchema(ctx context.Context, star *model.StarSchema) error
	PublishProduction(ctx context.Context) error
	VerifyProductionTypes(ctx context.Context) error
	Gate(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Engine runs the pipeline stages in order, recording each in the state
// store. Any stage failure aborts the run.
type Engine struct {
	cfg       *config.ProjectConfig
	warehouse Warehouse
	store     state.Store
	cleaner   *clean.Cleaner
	logger    *slog.Logger
}

// New creates a pipeline engine. A nil logger discards output.
func New(cfg *config.ProjectConfig, wh Warehouse, store state.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		cfg:       cfg,
		warehouse: wh,
		store:     store,
		cleaner:   clean.New(logger),
		logger:    logger,
	}
}

// Run executes the full pipeline and returns the completed run record.
func (e *Engine) Run(ctx context.Context) (*state.Run, error) {
	e.logger.Info("starting run", "environment", e.cfg.Environment)
	started := time.Now()

	run, err := e.store.CreateRun(e.cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	allocs, sheets, runErr := e.execute(ctx, run.ID)
	if runErr != nil {
		e.logger.Error("run failed", "run_id", run.ID, "error", runErr)
		_ = e.store.CompleteRun(run.ID, state.RunStatusFailed, runErr.Error())
		run, _ = e.store.GetRun(run.ID)
		return run, runErr
	}

	e.logger.Info("run completed",
		"run_id", run.ID,
		"allocations", len(allocs),
		"timesheets", len(sheets),
		"duration", time.Since(started).Round(time.Millisecond).String())
	if stages, err := e.store.ListStages(run.ID); err == nil {
		for _, st := range stages {
			e.logger.Info("stage summary", "stage", st.Name, "status", st.Status, "duration_ms", st.DurationMS)
		}
	}
	_ = e.store.CompleteRun(run.ID, state.RunStatusCompleted, "")
	run, _ = e.store.GetRun(run.ID)
	return run, nil
}

// execute runs the stages in order and stops at the first failure.
func (e *Engine) execute(ctx context.Context, runID string) ([]model.AllocationRecord, []model.TimesheetRecord, error) {
	var (
		allocs []model.AllocationRecord
		sheets []model.TimesheetRecord
		star   *model.StarSchema
	)

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageExtract, func(ctx context.Context) error {
			var err error
			allocs, sheets, err = e.prepare(ctx)
			return err
		}},
		{StageLoadRaw, func(ctx context.Context) error {
			if err := e.warehouse.CreateRawSchema(ctx); err != nil {
				return err
			}
			return e.warehouse.LoadRaw(ctx, allocs, sheets)
		}},
		{StageGateRaw, func(ctx context.Context) error {
			return e.warehouse.Gate(ctx, func(tx *sql.Tx) error {
				return quality.RawGate(e.logger).Run(ctx, tx)
			})
		}},
		{StageStagingViews, func(ctx context.Context) error {
			return e.warehouse.RefreshStagingViews(ctx)
		}},
		{StageTransform, func(ctx context.Context) error {
			var err error
			star, err = transform.New(e.logger).Build(allocs, sheets)
			if err != nil {
				return err
			}
			if err := e.warehouse.CreateStarSchema(ctx); err != nil {
				return err
			}
			return e.warehouse.LoadStarSchema(ctx, star)
		}},
		{StageGateStaging, func(ctx context.Context) error {
			return e.warehouse.Gate(ctx, func(tx *sql.Tx) error {
				return quality.StagingGate(e.logger).Run(ctx, tx)
			})
		}},
		{StagePublish, func(ctx context.Context) error {
			return e.warehouse.PublishProduction(ctx)
		}},
		{StageGateProd, func(ctx context.Context) error {
			err := e.warehouse.Gate(ctx, func(tx *sql.Tx) error {
				return quality.ProductionGate(e.logger).Run(ctx, tx)
			})
			if err != nil {
				return err
			}
			return e.warehouse.VerifyProductionTypes(ctx)
		}},
		{StageExport, func(ctx context.Context) error {
			return e.exportProcessed(allocs, sheets)
		}},
	}

	for _, st := range stages {
		if err := e.runStage(ctx, runID, st.name, st.fn); err != nil {
			return nil, nil, err
		}
	}

	return allocs, sheets, nil
}

// runStage records a stage around fn in the state store.
func (e *Engine) runStage(ctx context.Context, runID, name string, fn func(context.Context) error) error {
	e.logger.Info("stage started", "stage", name)

	stage, err := e.store.StartStage(runID, name)
	if err != nil {
		return fmt.Errorf("failed to record stage %s: %w", name, err)
	}

	if err := fn(ctx); err != nil {
		_ = e.store.CompleteStage(stage.ID, state.StageStatusFailed, err.Error())
		return fmt.Errorf("stage %s: %w", name, err)
	}

	_ = e.store.CompleteStage(stage.ID, state.StageStatusSuccess, "")
	e.logger.Info("stage completed", "stage", name)
	return nil
}

// PrepareAllocations reads, validates, and cleans the allocation export.
// Row errors are reported alongside the surviving batch. A source with zero
// valid rows returns schema.ErrNoValidData.
func (e *Engine) PrepareAllocations(ctx context.Context) ([]model.AllocationRecord, []*schema.RowError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	rows, err := extract.ReadFile(e.cfg.AllocationsPath, e.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("allocations: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	records, rowErrs, err := schema.Allocation(e.logger).Validate(rows)
	if err != nil {
		return nil, rowErrs, fmt.Errorf("allocations: %w", err)
	}
	if len(rowErrs) > 0 {
		e.logger.Warn("rejected allocation rows", "count", len(rowErrs))
	}
	return e.cleaner.Allocations(schema.DecodeAllocations(records)), rowErrs, nil
}

// PrepareTimesheets reads, validates, and cleans the timesheet export.
func (e *Engine) PrepareTimesheets(ctx context.Context) ([]model.TimesheetRecord, []*schema.RowError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	rows, err := extract.ReadFile(e.cfg.TimesheetsPath, e.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("timesheets: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	records, rowErrs, err := schema.Timesheet(e.logger).Validate(rows)
	if err != nil {
		return nil, rowErrs, fmt.Errorf("timesheets: %w", err)
	}
	if len(rowErrs) > 0 {
		e.logger.Warn("rejected timesheet rows", "count", len(rowErrs))
	}
	return e.cleaner.Timesheets(schema.DecodeTimesheets(records)), rowErrs, nil
}

// prepare fans out the two source paths and barriers before raw loading.
// A source with zero valid rows is fatal: loading an empty raw table would
// make the downstream gates pass vacuously on stale data.
func (e *Engine) prepare(ctx context.Context) ([]model.AllocationRecord, []model.TimesheetRecord, error) {
	var (
		allocs []model.AllocationRecord
		sheets []model.TimesheetRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		allocs, _, err = e.PrepareAllocations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		sheets, _, err = e.PrepareTimesheets(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return allocs, sheets, nil
}
