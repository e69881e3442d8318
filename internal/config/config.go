// Package config loads pipeline configuration from file, environment, and
// flags, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/timegrid-io/timegrid/pkg/adapter"
)

// Default configuration values.
const (
	DefaultAllocationsPath = "data/allocations.csv"
	DefaultTimesheetsPath  = "data/timesheets.csv"
	DefaultProcessedDir    = "data/processed"
	DefaultStatePath       = ".timegrid/state.db"
	DefaultEnv             = "dev"
)

// TargetConfig holds warehouse target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // postgres, duckdb

	// File-based databases (DuckDB)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// Validate checks if the target configuration is valid.
// The adapter registry is the single source of truth for known types.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.List(),
		}
	}
	return nil
}

// AdapterConfig converts the target to an adapter connection config.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     strings.ToLower(t.Type),
		Path:     t.Path,
		Host:     t.Host,
		Port:     t.Port,
		Username: t.User,
		Password: t.Password,
		Database: t.Database,
		Options:  t.Options,
	}
}

// ProjectConfig holds the full pipeline configuration.
type ProjectConfig struct {
	AllocationsPath string `koanf:"allocations_path"`
	TimesheetsPath  string `koanf:"timesheets_path"`
	ProcessedDir    string `koanf:"processed_dir"`
	ScriptsDir      string `koanf:"scripts_dir"`
	StatePath       string `koanf:"state_path"`
	Environment     string `koanf:"environment"`
	Verbose         bool   `koanf:"verbose"`

	Target *TargetConfig `koanf:"target"`
}

// ApplyDefaults fills unset fields with default values.
func (c *ProjectConfig) ApplyDefaults() {
	if c.AllocationsPath == "" {
		c.AllocationsPath = DefaultAllocationsPath
	}
	if c.TimesheetsPath == "" {
		c.TimesheetsPath = DefaultTimesheetsPath
	}
	if c.ProcessedDir == "" {
		c.ProcessedDir = DefaultProcessedDir
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}
	if c.Environment == "" {
		c.Environment = DefaultEnv
	}
	if c.Target != nil {
		c.Target.ApplyDefaults()
	}
}

// ApplyDefaults applies type-specific defaults to a target.
func (t *TargetConfig) ApplyDefaults() {
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = 5432
	}
}

// Validate checks the full configuration.
func (c *ProjectConfig) Validate() error {
	if c.Target == nil {
		return fmt.Errorf("target configuration is required")
	}
	return c.Target.Validate()
}
