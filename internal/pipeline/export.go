package pipeline

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/timegrid-io/timegrid/internal/extract"
	"github.com/timegrid-io/timegrid/internal/model"
	"github.com/timegrid-io/timegrid/internal/schema"
)

// exportProcessed writes the cleaned batches as CSV files so downstream
// consumers can inspect exactly what was loaded. A run without a processed
// directory configured skips the export.
func (e *Engine) exportProcessed(allocs []model.AllocationRecord, sheets []model.TimesheetRecord) error {
	if e.cfg.ProcessedDir == "" {
		e.logger.Debug("no processed directory configured, skipping export")
		return nil
	}

	if err := os.MkdirAll(e.cfg.ProcessedDir, 0o755); err != nil {
		return err
	}

	allocPath := filepath.Join(e.cfg.ProcessedDir, "allocations.csv")
	if err := extract.WriteFile(allocPath, allocationHeader, allocationRows(allocs)); err != nil {
		return err
	}

	sheetPath := filepath.Join(e.cfg.ProcessedDir, "timesheets.csv")
	if err := extract.WriteFile(sheetPath, timesheetHeader, timesheetRows(sheets)); err != nil {
		return err
	}

	e.logger.Info("exported processed data", "dir", e.cfg.ProcessedDir,
		"allocations", len(allocs), "timesheets", len(sheets))
	return nil
}

var allocationHeader = []string{"Client", "Project", "Role", "Name", "Task", "Start Date", "End Date", "Estimated Hours"}

var timesheetHeader = []string{"Client", "Project", "Name", "Task", "Date", "Hours", "Note", "Billable"}

func allocationRows(recs []model.AllocationRecord) [][]string {
	rows := make([][]string, len(recs))
	for i, r := range recs {
		rows[i] = []string{
			r.Client, r.Project, r.Role, r.Name, r.Task,
			r.StartDate.Format(schema.DateLayout),
			r.EndDate.Format(schema.DateLayout),
			strconv.Itoa(r.EstimatedHours),
		}
	}
	return rows
}

func timesheetRows(recs []model.TimesheetRecord) [][]string {
	rows := make([][]string, len(recs))
	for i, r := range recs {
		rows[i] = []string{
			r.Client, r.Project, r.Name, r.Task,
			r.Date.Format(schema.DateLayout),
			strconv.FormatFloat(r.Hours, 'f', -1, 64),
			r.Note, r.Billable,
		}
	}
	return rows
}
