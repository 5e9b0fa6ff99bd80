package db

import (
	"context"
	"database/sql"
)

// WrapSQL wraps a *sql.DB to implement the db.DB interface.
func WrapSQL(sqlDB *sql.DB) DB {
	return &SQLWrapper{sqlDB}
}

// SQLWrapper wraps *sql.DB to implement db.DB interface.
// *sql.Rows and *sql.Row already satisfy Rows and Row, so only the
// methods returning transactions or statements need adapting.
type SQLWrapper struct {
	*sql.DB
}

// Verify interface compliance at compile time.
var (
	_ DB   = (*SQLWrapper)(nil)
	_ Rows = (*sql.Rows)(nil)
	_ Row  = (*sql.Row)(nil)
)

func (w *SQLWrapper) Query(query string, args ...any) (Rows, error) {
	return w.QueryContext(context.Background(), query, args...)
}

func (w *SQLWrapper) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := w.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (w *SQLWrapper) QueryRow(query string, args ...any) Row {
	return w.DB.QueryRow(query, args...)
}

func (w *SQLWrapper) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	return w.DB.QueryRowContext(ctx, query, args...)
}

func (w *SQLWrapper) Begin() (Tx, error) {
	return w.BeginTx(context.Background(), nil)
}

func (w *SQLWrapper) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := w.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx}, nil
}

// Unwrap returns the underlying *sql.DB.
func (w *SQLWrapper) Unwrap() *sql.DB {
	return w.DB
}

type sqlTx struct {
	*sql.Tx
}

func (t *sqlTx) Query(query string, args ...any) (Rows, error) {
	rows, err := t.Tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *sqlTx) QueryRow(query string, args ...any) Row {
	return t.Tx.QueryRow(query, args...)
}

func (t *sqlTx) Exec(query string, args ...any) (Result, error) {
	return t.Tx.Exec(query, args...)
}

func (t *sqlTx) Prepare(query string) (Stmt, error) {
	stmt, err := t.Tx.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &sqlStmt{stmt}, nil
}

type sqlStmt struct {
	*sql.Stmt
}

func (s *sqlStmt) Query(args ...any) (Rows, error) {
	rows, err := s.Stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *sqlStmt) QueryRow(args ...any) Row {
	return s.Stmt.QueryRow(args...)
}
