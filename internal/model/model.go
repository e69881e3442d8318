// Package model defines the source records and star-schema row types that
// flow through the pipeline. Source records are produced by validation,
// mutated by cleaning, and consumed read-only by the dimensional transform.
package model

import "time"

// AllocationRecord is a planned assignment exported from Float.
type AllocationRecord struct {
	Client         string
	Project        string
	Role           string
	Name           string
	Task           string
	StartDate      time.Time
	EndDate        time.Time
	EstimatedHours int
}

// TimesheetRecord is a logged work entry exported from ClickUp.
type TimesheetRecord struct {
	Client   string
	Project  string
	Name     string
	Task     string
	Date     time.Time
	Hours    float64
	Note     string
	Billable string // "yes" or "no" after cleaning
}

// DimDate is one row of the date dimension.
type DimDate struct {
	DateID    int
	Date      time.Time
	DayOfWeek string
	Day       int
	Month     int
	Year      int
	IsWeekend bool
}

// DimTeamMember is one row of the team member dimension.
type DimTeamMember struct {
	TeamMemberID int
	Name         string
	Role         string
}

// DimProject is one row of the project dimension.
type DimProject struct {
	ProjectID   int
	ProjectName string
	Client      string
}

// DimTask is one row of the task dimension.
type DimTask struct {
	TaskID   int
	TaskName string
}

// FactTimesheet links the four dimensions with the logged and estimated
// hour measures. Composite identity is (DateID, TeamMemberID, ProjectID,
// TaskID).
type FactTimesheet struct {
	DateID          int
	TeamMemberID    int
	ProjectID       int
	TaskID          int
	LogHours        float64
	EstProjectHours int
	IsBillable      bool
}

// StarSchema holds the full dimensional model produced by one transform run.
// Dimension slices are ordered by surrogate key.
type StarSchema struct {
	Dates       []DimDate
	TeamMembers []DimTeamMember
	Projects    []DimProject
	Tasks       []DimTask
	Facts       []FactTimesheet
}
