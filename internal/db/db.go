// Package db is a small adapter over database/sql so the symbol catalog can
// run on SQLite (modernc.org/sqlite, the default) or PostgreSQL (lib/pq)
// with the same code.
package db

import (
	"context"
	"database/sql"
)

// DB is the subset of *sql.DB the catalog relies on.
type DB interface {
	Query(query string, args ...any) (Rows, error)
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(query string, args ...any) Row
	QueryRowContext(ctx context.Context, query string, args ...any) Row
	Exec(query string, args ...any) (Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (Result, error)
	Begin() (Tx, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	Ping() error
	PingContext(ctx context.Context) error
	Close() error
}

// Rows mirrors *sql.Rows.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
	Columns() ([]string, error)
}

// Row mirrors *sql.Row.
type Row interface {
	Scan(dest ...any) error
	Err() error
}

// Result mirrors sql.Result.
type Result = sql.Result

// Tx mirrors *sql.Tx.
type Tx interface {
	Query(query string, args ...any) (Rows, error)
	QueryRow(query string, args ...any) Row
	Exec(query string, args ...any) (Result, error)
	Prepare(query string) (Stmt, error)
	Commit() error
	Rollback() error
}

// Stmt mirrors *sql.Stmt.
type Stmt interface {
	Exec(args ...any) (Result, error)
	Query(args ...any) (Rows, error)
	QueryRow(args ...any) Row
	Close() error
}

// Config describes how to open a database.
type Config struct {
	Type DatabaseType

	// Path is the SQLite file, or ":memory:".
	Path string

	// DSN is the PostgreSQL connection string.
	DSN string

	EnableWAL       bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
}

// DefaultConfig returns a SQLite configuration for the given file.
func DefaultConfig(path string) Config {
	return Config{
		Type:      DatabaseSQLite,
		Path:      path,
		EnableWAL: true,
	}
}

// PostgresConfig returns a PostgreSQL configuration for the given DSN.
func PostgresConfig(dsn string) Config {
	return Config{
		Type:            DatabasePostgres,
		DSN:             dsn,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 300,
	}
}

// Dialect returns the SQL dialect matching the configured database type.
func (c Config) Dialect() Dialect {
	return GetDialect(c.Type)
}
