package schema

import (
	"log/slog"
	"time"

	"github.com/timegrid-io/timegrid/internal/model"
)

// Source column headers are fixed contracts with the export tools.

// Allocation builds the schema for the Float allocations export.
func Allocation(logger *slog.Logger) *Schema {
	return New("float_allocations", []Field{
		{Column: "Client", Name: "client", Kind: KindText, Required: true},
		{Column: "Project", Name: "project", Kind: KindText, Required: true},
		{Column: "Role", Name: "role", Kind: KindText, Required: true},
		{Column: "Name", Name: "name", Kind: KindText, Required: true},
		{Column: "Task", Name: "task", Kind: KindText, Required: true},
		{Column: "Start Date", Name: "start_date", Kind: KindDate, Required: true},
		{Column: "End Date", Name: "end_date", Kind: KindDate, Required: true},
		{Column: "Estimated Hours", Name: "estimated_hours", Kind: KindInt, Required: true, Rules: []RuleFunc{NonNegative}},
	}, logger)
}

// Timesheet builds the schema for the ClickUp timesheets export.
func Timesheet(logger *slog.Logger) *Schema {
	return New("clickup_timesheets", []Field{
		{Column: "Client", Name: "client", Kind: KindText, Required: true},
		{Column: "Project", Name: "project", Kind: KindText, Required: true},
		{Column: "Name", Name: "name", Kind: KindText, Required: true},
		{Column: "Task", Name: "task", Kind: KindText, Required: true},
		{Column: "Date", Name: "date", Kind: KindDate, Required: true},
		{Column: "Hours", Name: "hours", Kind: KindFloat, Required: true, Rules: []RuleFunc{NonNegative}},
		{Column: "Note", Name: "note", Kind: KindText, Required: false},
		{Column: "Billable", Name: "billable", Kind: KindEnum, Required: true, Enum: []string{"yes", "no"}},
	}, logger)
}

// DecodeAllocations converts validated records to typed allocation records.
func DecodeAllocations(records []Record) []model.AllocationRecord {
	out := make([]model.AllocationRecord, 0, len(records))
	for _, r := range records {
		out = append(out, model.AllocationRecord{
			Client:         asString(r["client"]),
			Project:        asString(r["project"]),
			Role:           asString(r["role"]),
			Name:           asString(r["name"]),
			Task:           asString(r["task"]),
			StartDate:      asTime(r["start_date"]),
			EndDate:        asTime(r["end_date"]),
			EstimatedHours: asInt(r["estimated_hours"]),
		})
	}
	return out
}

// DecodeTimesheets converts validated records to typed timesheet records.
func DecodeTimesheets(records []Record) []model.TimesheetRecord {
	out := make([]model.TimesheetRecord, 0, len(records))
	for _, r := range records {
		out = append(out, model.TimesheetRecord{
			Client:   asString(r["client"]),
			Project:  asString(r["project"]),
			Name:     asString(r["name"]),
			Task:     asString(r["task"]),
			Date:     asTime(r["date"]),
			Hours:    asFloat(r["hours"]),
			Note:     asString(r["note"]),
			Billable: asString(r["billable"]),
		})
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asTime(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}

func asInt(v any) int {
	n, _ := v.(int)
	return n
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}
