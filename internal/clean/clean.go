// Package clean applies the fixed cleaning policy to validated batches
// before they are loaded into the raw tier: deduplication, critical-field
// drops, default fills, date checks, range filters, and text normalization.
// Every step logs how many rows it removed or touched.
package clean

import (
	"log/slog"
	"strings"

	"github.com/timegrid-io/timegrid/internal/model"
)

// Cleaner cleans typed batches. The operation is idempotent: cleaning an
// already-clean batch changes nothing.
type Cleaner struct {
	logger *slog.Logger
}

// New creates a Cleaner. A nil logger discards output.
func New(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cleaner{logger: logger}
}

// Allocations cleans a batch of allocation records.
func (c *Cleaner) Allocations(recs []model.AllocationRecord) []model.AllocationRecord {
	const dataset = "float_allocations"

	recs = dropDuplicates(c.logger, dataset, recs)

	recs = dropRows(c.logger, dataset, "missing critical fields", recs, func(r model.AllocationRecord) bool {
		return anyEmpty(r.Client, r.Project, r.Name, r.Task)
	})

	recs = dropRows(c.logger, dataset, "invalid dates", recs, func(r model.AllocationRecord) bool {
		return r.StartDate.IsZero() || r.EndDate.IsZero()
	})

	for i := range recs {
		recs[i].Role = normalize(recs[i].Role)
		recs[i].Task = normalize(recs[i].Task)
		recs[i].Client = normalize(recs[i].Client)
	}

	c.logger.Info("finished cleaning", "dataset", dataset, "rows", len(recs))
	return recs
}

// Timesheets cleans a batch of timesheet records.
func (c *Cleaner) Timesheets(recs []model.TimesheetRecord) []model.TimesheetRecord {
	const dataset = "clickup_timesheets"

	recs = dropDuplicates(c.logger, dataset, recs)

	recs = dropRows(c.logger, dataset, "missing critical fields", recs, func(r model.TimesheetRecord) bool {
		return anyEmpty(r.Client, r.Project, r.Name, r.Task)
	})

	filled := 0
	for i := range recs {
		if recs[i].Billable == "" {
			recs[i].Billable = "No"
			filled++
		}
	}
	if filled > 0 {
		c.logger.Info("filled missing billable flags", "dataset", dataset, "rows", filled)
	}

	recs = dropRows(c.logger, dataset, "invalid dates", recs, func(r model.TimesheetRecord) bool {
		return r.Date.IsZero()
	})

	recs = dropRows(c.logger, dataset, "negative hours", recs, func(r model.TimesheetRecord) bool {
		return r.Hours < 0
	})

	for i := range recs {
		recs[i].Task = normalize(recs[i].Task)
		recs[i].Billable = normalize(recs[i].Billable)
		recs[i].Client = normalize(recs[i].Client)
	}

	c.logger.Info("finished cleaning", "dataset", dataset, "rows", len(recs))
	return recs
}

// dropDuplicates removes exact full-row duplicates, keeping first occurrence.
func dropDuplicates[T comparable](logger *slog.Logger, dataset string, recs []T) []T {
	seen := make(map[T]struct{}, len(recs))
	out := recs[:0:0]
	for _, r := range recs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	if removed := len(recs) - len(out); removed > 0 {
		logger.Warn("duplicate rows removed", "dataset", dataset, "rows", removed)
	}
	return out
}

func dropRows[T any](logger *slog.Logger, dataset, reason string, recs []T, bad func(T) bool) []T {
	out := recs[:0:0]
	for _, r := range recs {
		if bad(r) {
			continue
		}
		out = append(out, r)
	}
	if removed := len(recs) - len(out); removed > 0 {
		logger.Warn("rows removed", "dataset", dataset, "reason", reason, "rows", removed)
	}
	return out
}

func anyEmpty(vals ...string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
