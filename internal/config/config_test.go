package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/timegrid-io/timegrid/pkg/adapters/duckdb"
	_ "github.com/timegrid-io/timegrid/pkg/adapters/postgres"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err, "explicit config file must exist")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAllocationsPath, cfg.AllocationsPath)
	assert.Equal(t, DefaultTimesheetsPath, cfg.TimesheetsPath)
	assert.Equal(t, DefaultProcessedDir, cfg.ProcessedDir)
	assert.Equal(t, DefaultStatePath, cfg.StatePath)
	assert.Equal(t, DefaultEnv, cfg.Environment)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
allocations_path: exports/float.csv
timesheets_path: exports/clickup.csv
environment: prod
target:
  type: postgres
  host: warehouse.internal
  user: etl
  database: timetracking
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "exports/float.csv", cfg.AllocationsPath)
	assert.Equal(t, "exports/clickup.csv", cfg.TimesheetsPath)
	assert.Equal(t, "prod", cfg.Environment)
	require.NotNil(t, cfg.Target)
	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, "warehouse.internal", cfg.Target.Host)
	assert.Equal(t, 5432, cfg.Target.Port, "postgres port default applies")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "environment: dev\n")
	t.Setenv("TIMEGRID_ENVIRONMENT", "staging")
	t.Setenv("TIMEGRID_TARGET__TYPE", "duckdb")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	require.NotNil(t, cfg.Target)
	assert.Equal(t, "duckdb", cfg.Target.Type)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("TIMEGRID_ENVIRONMENT", "staging")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("environment", "", "")
	require.NoError(t, flags.Parse([]string{"--environment", "prod"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Environment)
}

func TestLoad_UnchangedFlagsIgnored(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("environment", "flagdefault", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultEnv, cfg.Environment, "unset flags must not override defaults")
}

func TestTargetValidate(t *testing.T) {
	tests := []struct {
		name    string
		target  TargetConfig
		wantErr bool
	}{
		{"postgres", TargetConfig{Type: "postgres"}, false},
		{"duckdb", TargetConfig{Type: "duckdb"}, false},
		{"case insensitive", TargetConfig{Type: "DuckDB"}, false},
		{"unknown", TargetConfig{Type: "oracle"}, true},
		{"empty", TargetConfig{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_RequiresTarget(t *testing.T) {
	cfg := &ProjectConfig{}
	assert.Error(t, cfg.Validate())
}

func TestAdapterConfig(t *testing.T) {
	target := &TargetConfig{
		Type: "Postgres", Host: "db", Port: 5433, User: "etl",
		Password: "secret", Database: "timetracking",
		Options: map[string]string{"sslmode": "require"},
	}

	ac := target.AdapterConfig()
	assert.Equal(t, "postgres", ac.Type)
	assert.Equal(t, "db", ac.Host)
	assert.Equal(t, 5433, ac.Port)
	assert.Equal(t, "etl", ac.Username)
	assert.Equal(t, "timetracking", ac.Database)
	assert.Equal(t, "require", ac.Options["sslmode"])
}
