// Package scripts supplies the opaque SQL payloads the pipeline hands to the
// warehouse: schema DDL, staging view definitions, and the production load.
// Defaults are embedded; a project can override any script by dropping a file
// with the same name into its scripts directory.
package scripts

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed sql/*.sql
var defaults embed.FS

// Script keys known to the pipeline.
const (
	CreateRawSchema    = "create_raw_schema"
	CreateStagingViews = "create_staging_views"
	CreateStagingStar  = "create_staging_star_schema"
	LoadProdSchema     = "load_prod_schema"
)

// Provider resolves a script key to its SQL text.
type Provider interface {
	Script(key string) (string, error)
}

// FSProvider serves embedded scripts with an optional on-disk override dir.
type FSProvider struct {
	overrideDir string
}

// NewProvider creates a provider. overrideDir may be empty.
func NewProvider(overrideDir string) *FSProvider {
	return &FSProvider{overrideDir: overrideDir}
}

// Script returns the SQL text for a key, preferring the override directory.
func (p *FSProvider) Script(key string) (string, error) {
	name := key + ".sql"

	if p.overrideDir != "" {
		b, err := os.ReadFile(filepath.Join(p.overrideDir, name))
		if err == nil {
			return string(b), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read script override %s: %w", name, err)
		}
	}

	b, err := defaults.ReadFile("sql/" + name)
	if err != nil {
		return "", fmt.Errorf("unknown script %q: %w", key, err)
	}
	return string(b), nil
}
