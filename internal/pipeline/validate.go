package pipeline

import (
	"fmt"

	"github.com/timegrid-io/timegrid/internal/extract"
	"github.com/timegrid-io/timegrid/internal/schema"
)

// SourceReport summarizes validation of one source file without touching
// the warehouse.
type SourceReport struct {
	Source   string
	Path     string
	Total    int
	Valid    int
	Cleaned  int
	Rejected []*schema.RowError
}

// ValidateSources runs extraction, validation, and cleaning for both
// sources and reports the outcome. Nothing is loaded.
func (e *Engine) ValidateSources() ([]*SourceReport, error) {
	allocRows, err := extract.ReadFile(e.cfg.AllocationsPath, e.logger)
	if err != nil {
		return nil, fmt.Errorf("allocations: %w", err)
	}
	records, rowErrs, err := schema.Allocation(e.logger).Validate(allocRows)
	if err != nil {
		return nil, fmt.Errorf("allocations: %w", err)
	}
	cleaned := e.cleaner.Allocations(schema.DecodeAllocations(records))
	reports := []*SourceReport{{
		Source:   "allocations",
		Path:     e.cfg.AllocationsPath,
		Total:    len(allocRows),
		Valid:    len(records),
		Cleaned:  len(cleaned),
		Rejected: rowErrs,
	}}

	sheetRows, err := extract.ReadFile(e.cfg.TimesheetsPath, e.logger)
	if err != nil {
		return nil, fmt.Errorf("timesheets: %w", err)
	}
	records, rowErrs, err = schema.Timesheet(e.logger).Validate(sheetRows)
	if err != nil {
		return nil, fmt.Errorf("timesheets: %w", err)
	}
	cleanedSheets := e.cleaner.Timesheets(schema.DecodeTimesheets(records))
	reports = append(reports, &SourceReport{
		Source:   "timesheets",
		Path:     e.cfg.TimesheetsPath,
		Total:    len(sheetRows),
		Valid:    len(records),
		Cleaned:  len(cleanedSheets),
		Rejected: rowErrs,
	})

	return reports, nil
}
