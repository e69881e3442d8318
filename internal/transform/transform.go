// Package transform derives the star schema from cleaned source batches:
// four dimension tables keyed by deterministic surrogate integers and one
// fact table with resolved foreign keys.
package transform

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/timegrid-io/timegrid/internal/model"
)

// UnresolvedForeignKeyError reports a fact whose natural key has no matching
// dimension row. Dimensions are derived from the same cleaned input, so this
// signals upstream inconsistency and is fatal.
type UnresolvedForeignKeyError struct {
	Dimension string
	Key       string
}

func (e *UnresolvedForeignKeyError) Error() string {
	return fmt.Sprintf("fact references %s key %q with no dimension row", e.Dimension, e.Key)
}

// allocKey joins facts to allocations for the estimated-hours measure.
type allocKey struct {
	name    string
	project string
	task    string
}

// Transformer builds the dimensional model. It never mutates its input.
type Transformer struct {
	logger *slog.Logger
}

// New creates a Transformer. A nil logger discards output.
func New(logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transformer{logger: logger}
}

// Build derives dimensions and facts from the cleaned raw-tier contents.
// Surrogate keys are assigned in sorted natural-key order, so the same input
// always yields the same schema.
func (t *Transformer) Build(allocs []model.AllocationRecord, sheets []model.TimesheetRecord) (*model.StarSchema, error) {
	star := &model.StarSchema{}

	dateIDs := t.buildDates(star, allocs, sheets)
	memberIDs := t.buildTeamMembers(star, allocs, sheets)
	projectIDs := t.buildProjects(star, allocs, sheets)
	taskIDs := t.buildTasks(star, allocs, sheets)

	estimates := make(map[allocKey]int, len(allocs))
	for _, a := range allocs {
		estimates[allocKey{a.Name, a.Project, a.Task}] = a.EstimatedHours
	}

	unmatched := 0
	for _, s := range sheets {
		dateID, ok := dateIDs[dayKey(s.Date)]
		if !ok {
			return nil, &UnresolvedForeignKeyError{Dimension: "dim_date", Key: dayKey(s.Date)}
		}
		memberID, ok := memberIDs[s.Name]
		if !ok {
			return nil, &UnresolvedForeignKeyError{Dimension: "dim_team_member", Key: s.Name}
		}
		projectID, ok := projectIDs[s.Project]
		if !ok {
			return nil, &UnresolvedForeignKeyError{Dimension: "dim_project", Key: s.Project}
		}
		taskID, ok := taskIDs[s.Task]
		if !ok {
			return nil, &UnresolvedForeignKeyError{Dimension: "dim_task", Key: s.Task}
		}

		// No matching allocation means no estimate to carry; the fact is
		// still emitted with an explicit zero and the miss is counted.
		est, ok := estimates[allocKey{s.Name, s.Project, s.Task}]
		if !ok {
			unmatched++
		}

		star.Facts = append(star.Facts, model.FactTimesheet{
			DateID:          dateID,
			TeamMemberID:    memberID,
			ProjectID:       projectID,
			TaskID:          taskID,
			LogHours:        s.Hours,
			EstProjectHours: est,
			IsBillable:      s.Billable == "yes",
		})
	}

	if unmatched > 0 {
		t.logger.Warn("timesheet facts without a matching allocation", "rows", unmatched)
	}
	t.logger.Info("star schema built",
		"dates", len(star.Dates), "team_members", len(star.TeamMembers),
		"projects", len(star.Projects), "tasks", len(star.Tasks), "facts", len(star.Facts))

	return star, nil
}

func (t *Transformer) buildDates(star *model.StarSchema, allocs []model.AllocationRecord, sheets []model.TimesheetRecord) map[string]int {
	distinct := make(map[string]time.Time)
	for _, a := range allocs {
		distinct[dayKey(a.StartDate)] = day(a.StartDate)
		distinct[dayKey(a.EndDate)] = day(a.EndDate)
	}
	for _, s := range sheets {
		distinct[dayKey(s.Date)] = day(s.Date)
	}

	ids := assignIDs(distinct)
	star.Dates = make([]model.DimDate, 0, len(ids))
	for key, id := range ids {
		d := distinct[key]
		star.Dates = append(star.Dates, model.DimDate{
			DateID:    id,
			Date:      d,
			DayOfWeek: d.Weekday().String(),
			Day:       d.Day(),
			Month:     int(d.Month()),
			Year:      d.Year(),
			IsWeekend: d.Weekday() == time.Saturday || d.Weekday() == time.Sunday,
		})
	}
	sort.Slice(star.Dates, func(i, j int) bool { return star.Dates[i].DateID < star.Dates[j].DateID })
	return ids
}

func (t *Transformer) buildTeamMembers(star *model.StarSchema, allocs []model.AllocationRecord, sheets []model.TimesheetRecord) map[string]int {
	distinct := make(map[string]struct{})
	roles := make(map[string]string)
	for _, a := range allocs {
		distinct[a.Name] = struct{}{}
		if _, ok := roles[a.Name]; !ok {
			roles[a.Name] = a.Role
		}
	}
	for _, s := range sheets {
		distinct[s.Name] = struct{}{}
	}

	ids := assignIDs(distinct)
	star.TeamMembers = make([]model.DimTeamMember, 0, len(ids))
	for name, id := range ids {
		star.TeamMembers = append(star.TeamMembers, model.DimTeamMember{
			TeamMemberID: id,
			Name:         name,
			Role:         roles[name],
		})
	}
	sort.Slice(star.TeamMembers, func(i, j int) bool {
		return star.TeamMembers[i].TeamMemberID < star.TeamMembers[j].TeamMemberID
	})
	return ids
}

func (t *Transformer) buildProjects(star *model.StarSchema, allocs []model.AllocationRecord, sheets []model.TimesheetRecord) map[string]int {
	distinct := make(map[string]struct{})
	clients := make(map[string]string)
	for _, a := range allocs {
		distinct[a.Project] = struct{}{}
		if _, ok := clients[a.Project]; !ok {
			clients[a.Project] = a.Client
		}
	}
	for _, s := range sheets {
		distinct[s.Project] = struct{}{}
		if _, ok := clients[s.Project]; !ok {
			clients[s.Project] = s.Client
		}
	}

	ids := assignIDs(distinct)
	star.Projects = make([]model.DimProject, 0, len(ids))
	for name, id := range ids {
		star.Projects = append(star.Projects, model.DimProject{
			ProjectID:   id,
			ProjectName: name,
			Client:      clients[name],
		})
	}
	sort.Slice(star.Projects, func(i, j int) bool { return star.Projects[i].ProjectID < star.Projects[j].ProjectID })
	return ids
}

func (t *Transformer) buildTasks(star *model.StarSchema, allocs []model.AllocationRecord, sheets []model.TimesheetRecord) map[string]int {
	distinct := make(map[string]struct{})
	for _, a := range allocs {
		distinct[a.Task] = struct{}{}
	}
	for _, s := range sheets {
		distinct[s.Task] = struct{}{}
	}

	ids := assignIDs(distinct)
	star.Tasks = make([]model.DimTask, 0, len(ids))
	for name, id := range ids {
		star.Tasks = append(star.Tasks, model.DimTask{TaskID: id, TaskName: name})
	}
	sort.Slice(star.Tasks, func(i, j int) bool { return star.Tasks[i].TaskID < star.Tasks[j].TaskID })
	return ids
}

// assignIDs maps distinct natural keys to surrogate ints in sorted key order.
func assignIDs[V any](distinct map[string]V) map[string]int {
	keys := make([]string, 0, len(distinct))
	for k := range distinct {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ids := make(map[string]int, len(keys))
	for i, k := range keys {
		ids[k] = i + 1
	}
	return ids
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
