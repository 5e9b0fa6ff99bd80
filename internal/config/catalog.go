package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"splusls/internal/db"
)

// DefaultCatalogPath is the SQLite catalog location relative to a workspace.
const DefaultCatalogPath = ".splusls/catalog.db"

// CatalogConfig selects the symbol catalog database.
type CatalogConfig struct {
	// Type is the database type (sqlite, postgres)
	Type db.DatabaseType `yaml:"type"`

	// Path is the SQLite database file path (for SQLite)
	Path string `yaml:"path,omitempty"`

	// DSN is the connection string (for PostgreSQL)
	DSN string `yaml:"dsn,omitempty"`
}

// DefaultCatalogConfig returns SQLite at DefaultCatalogPath.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{Type: db.DatabaseSQLite, Path: DefaultCatalogPath}
}

// LoadCatalogConfigFromEnv loads catalog configuration from environment variables.
// Supports the following variables:
//   - SPLUS_DB_TYPE: Database type ("sqlite" or "postgres")
//   - SPLUS_DB_DSN: Connection string for PostgreSQL
//   - SPLUS_DB_PATH: Database file path for SQLite
func LoadCatalogConfigFromEnv() CatalogConfig {
	cfg := DefaultCatalogConfig()
	cfg.applyEnv()
	return cfg
}

func (c *CatalogConfig) applyEnv() {
	if dbType := os.Getenv("SPLUS_DB_TYPE"); dbType != "" {
		c.Type = parseDatabaseType(dbType)
	}

	if dsn := os.Getenv("SPLUS_DB_DSN"); dsn != "" {
		c.DSN = dsn

		// A postgres DSN implies the backend when no type was given
		if os.Getenv("SPLUS_DB_TYPE") == "" && isPostgresDSN(dsn) {
			c.Type = db.DatabasePostgres
		}
	}

	if path := os.Getenv("SPLUS_DB_PATH"); path != "" {
		c.Path = path
	}
}

func parseDatabaseType(s string) db.DatabaseType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg":
		return db.DatabasePostgres
	case "sqlite", "sqlite3", "":
		return db.DatabaseSQLite
	default:
		return db.DatabaseType(s)
	}
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func (c *CatalogConfig) validate() error {
	c.Type = parseDatabaseType(string(c.Type))
	switch c.Type {
	case db.DatabaseSQLite:
		if c.Path == "" {
			c.Path = DefaultCatalogPath
		}
	case db.DatabasePostgres:
		if c.DSN == "" {
			return fmt.Errorf("%w: catalog.dsn is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown catalog type %q", ErrInvalidConfig, c.Type)
	}
	return nil
}

// ToDBConfig converts the catalog section to db.Config. Relative SQLite
// paths are resolved against root.
func (c CatalogConfig) ToDBConfig(root string) db.Config {
	if c.Type == db.DatabasePostgres {
		return db.PostgresConfig(c.DSN)
	}
	path := c.Path
	if path == "" {
		path = DefaultCatalogPath
	}
	if path != ":memory:" && root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return db.DefaultConfig(path)
}

// String returns a human-readable description with the DSN password masked.
func (c CatalogConfig) String() string {
	switch c.Type {
	case db.DatabasePostgres:
		dsn := c.DSN
		if at := strings.LastIndex(dsn, "@"); at >= 0 {
			creds := dsn[:at]
			scheme := ""
			if i := strings.Index(creds, "://"); i >= 0 {
				scheme, creds = creds[:i+3], creds[i+3:]
			}
			if colon := strings.Index(creds, ":"); colon >= 0 {
				dsn = scheme + creds[:colon] + ":***" + dsn[at:]
			}
		}
		return fmt.Sprintf("PostgreSQL (%s)", dsn)
	default:
		return fmt.Sprintf("SQLite (%s)", c.Path)
	}
}
