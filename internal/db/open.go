package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Open opens a database connection using the configuration.
// SQLite is the default when no type is set.
func Open(cfg Config) (DB, error) {
	switch cfg.Type {
	case DatabasePostgres:
		return openPostgres(cfg)

	case DatabaseSQLite, "":
		return openSQLite(cfg)

	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// openSQLite opens a SQLite database with the modernc.org/sqlite driver.
func openSQLite(cfg Config) (DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite requires a path in config")
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.Path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		sqlDB.SetMaxOpenConns(1)
	}

	if cfg.EnableWAL && cfg.Path != ":memory:" {
		for _, stmt := range GetDialect(DatabaseSQLite).InitStatements() {
			if _, err := sqlDB.Exec(stmt); err != nil {
				sqlDB.Close()
				return nil, fmt.Errorf("running %q: %w", stmt, err)
			}
		}
	}

	return WrapSQL(sqlDB), nil
}

// openPostgres opens a PostgreSQL database connection.
// Requires DSN in config.
func openPostgres(cfg Config) (DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres requires DSN in config")
	}

	sqlDB, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return WrapSQL(sqlDB), nil
}
