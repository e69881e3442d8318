// Package state records pipeline runs and their stage outcomes in a local
// SQLite database, so failed runs can be diagnosed without re-running.
package state

import "time"

// RunStatus is the lifecycle status of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StageStatus is the lifecycle status of one stage within a run.
type StageStatus string

const (
	StageStatusRunning StageStatus = "running"
	StageStatusSuccess StageStatus = "success"
	StageStatusFailed  StageStatus = "failed"
)

// Run is one end-to-end pipeline execution.
type Run struct {
	ID          string
	Environment string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// StageRun is one stage execution within a run.
type StageRun struct {
	ID          string
	RunID       string
	Name        string
	Status      StageStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	DurationMS  int64
	Error       string
}

// Store persists runs and stage runs.
type Store interface {
	Open(path string) error
	Migrate() error
	Close() error

	CreateRun(env string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	StartStage(runID, name string) (*StageRun, error)
	CompleteStage(id string, status StageStatus, errMsg string) error
	ListStages(runID string) ([]*StageRun, error)
}
