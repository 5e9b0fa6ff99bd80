// Package catalog persists flattened symbol trees so workspace-wide symbol
// search does not need every file open. It runs on SQLite by default and on
// PostgreSQL through the same dialect-aware SQL.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"splusls/internal/db"
	"splusls/internal/symbols"
)

// Entry is one catalogued symbol. Line and Column are zero based.
type Entry struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	DataType  string `json:"data_type,omitempty"`
	Modifier  string `json:"modifier,omitempty"`
	URI       string `json:"uri"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	Container string `json:"container,omitempty"`
}

// Flatten lists every named symbol of t in walk order. Container is the
// name of the enclosing symbol.
func Flatten(t *symbols.Tree) []Entry {
	var out []Entry
	t.Walk(func(s *symbols.Symbol) bool {
		if s.Name == "" {
			return true
		}
		e := Entry{
			Name:     s.Name,
			Kind:     s.Kind.String(),
			DataType: s.DataType,
			Modifier: s.Modifier,
			URI:      t.URI(),
			Line:     s.NameRange.Start.Line,
			Column:   s.NameRange.Start.Character,
		}
		if p := s.Parent(); p != nil {
			e.Container = p.Name
		}
		out = append(out, e)
		return true
	})
	return out
}

// Catalog is the database-backed symbol catalog. It is safe for concurrent
// use.
type Catalog struct {
	adapter db.DB
	dialect db.Dialect
	logger  *slog.Logger
}

// Open opens the catalog database, creating its schema when missing.
func Open(cfg db.Config, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	database, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	dialect := cfg.Dialect()
	if err := initSchema(database, dialect); err != nil {
		database.Close()
		return nil, err
	}
	return &Catalog{adapter: database, dialect: dialect, logger: logger}, nil
}

// ErrNoCatalog means the SQLite catalog file has not been created yet.
var ErrNoCatalog = errors.New("no symbol catalog found")

// OpenExisting is Open for readers: it refuses to create a SQLite file that
// does not exist yet.
func OpenExisting(cfg db.Config, logger *slog.Logger) (*Catalog, error) {
	if cfg.Type != db.DatabasePostgres && cfg.Path != ":memory:" {
		if _, err := os.Stat(cfg.Path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNoCatalog, cfg.Path)
		}
	}
	return Open(cfg, logger)
}

// Close closes the catalog database.
func (c *Catalog) Close() error {
	if c.adapter != nil {
		return c.adapter.Close()
	}
	return nil
}

// Replace swaps the entries stored for uri with entries in one transaction.
func (c *Catalog) Replace(ctx context.Context, uri string, entries []Entry) error {
	return c.ReplaceHashed(ctx, uri, "", entries)
}

// ReplaceHashed is Replace that also records the content hash the entries
// were extracted from.
func (c *Catalog) ReplaceHashed(ctx context.Context, uri, hash string, entries []Entry) error {
	tx, err := c.adapter.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	deleteQuery := fmt.Sprintf("DELETE FROM symbols WHERE uri = %s", c.dialect.Placeholder(1))
	if _, err := tx.Exec(deleteQuery, uri); err != nil {
		return fmt.Errorf("clearing symbols for %s: %w", uri, err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO symbols (name, folded, kind, data_type, modifier, uri, line, col, container) VALUES (%s)",
		c.dialect.Placeholders(9))
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.Exec(e.Name, strings.ToLower(e.Name), e.Kind,
			nullString(e.DataType), nullString(e.Modifier), uri,
			e.Line, e.Column, nullString(e.Container))
		if err != nil {
			return fmt.Errorf("inserting %s: %w", e.Name, err)
		}
	}

	fileUpsert := c.dialect.UpsertSQL("files",
		[]string{"uri", "symbols", "hash", "indexed_at"},
		[]string{"uri"},
		nil,
	)
	if _, err := tx.Exec(fileUpsert, uri, len(entries), nullString(hash), time.Now().Unix()); err != nil {
		return fmt.Errorf("updating file record for %s: %w", uri, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	c.logger.Debug("catalogued file", "uri", uri, "symbols", len(entries))
	return nil
}

// ReplaceTree catalogues a symbol tree under its own URI.
func (c *Catalog) ReplaceTree(ctx context.Context, t *symbols.Tree) error {
	return c.Replace(ctx, t.URI(), Flatten(t))
}

// Remove drops everything stored for uri.
func (c *Catalog) Remove(ctx context.Context, uri string) error {
	tx, err := c.adapter.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()
	for _, table := range []string{"symbols", "files"} {
		q := fmt.Sprintf("DELETE FROM %s WHERE uri = %s", table, c.dialect.Placeholder(1))
		if _, err := tx.Exec(q, uri); err != nil {
			return fmt.Errorf("removing %s from %s: %w", uri, table, err)
		}
	}
	return tx.Commit()
}

// Files returns the content hash recorded for every catalogued URI. Files
// catalogued without a hash map to "".
func (c *Catalog) Files(ctx context.Context) (map[string]string, error) {
	rows, err := c.adapter.QueryContext(ctx, "SELECT uri, hash FROM files")
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	files := make(map[string]string)
	for rows.Next() {
		var uri string
		var hash sql.NullString
		if err := rows.Scan(&uri, &hash); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files[uri] = hash.String
	}
	return files, rows.Err()
}

// Find searches symbol names case-insensitively. Exact matches come first,
// then prefix matches, then other substring matches. An empty kind matches
// every kind.
func (c *Catalog) Find(ctx context.Context, name, kind string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	folded := strings.ToLower(name)
	escaped := escapeLike(folded)

	p := c.dialect.Placeholder
	where := fmt.Sprintf(`folded LIKE %s ESCAPE '\'`, p(1))
	args := []any{"%" + escaped + "%"}
	if kind != "" {
		where += fmt.Sprintf(" AND kind = %s", p(2))
		args = append(args, kind)
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT name, kind, data_type, modifier, uri, line, col, container
			 FROM symbols
			 WHERE %s
			 ORDER BY
				CASE WHEN folded = %s THEN 0
					 WHEN folded LIKE %s ESCAPE '\' THEN 1
					 ELSE 2 END,
				name, uri, line
			 LIMIT %s`, where, p(n+1), p(n+2), p(n+3))
	args = append(args, folded, escaped+"%", limit)

	return c.query(ctx, query, args...)
}

// ListInFile returns the entries of uri in source order.
func (c *Catalog) ListInFile(ctx context.Context, uri string) ([]Entry, error) {
	query := fmt.Sprintf(`SELECT name, kind, data_type, modifier, uri, line, col, container
			  FROM symbols
			  WHERE uri = %s
			  ORDER BY line, col`, c.dialect.Placeholder(1))
	return c.query(ctx, query, uri)
}

func (c *Catalog) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := c.adapter.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying symbols: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var dataType, modifier, container sql.NullString
		if err := rows.Scan(&e.Name, &e.Kind, &dataType, &modifier, &e.URI, &e.Line, &e.Column, &container); err != nil {
			return nil, fmt.Errorf("scanning symbol: %w", err)
		}
		e.DataType = dataType.String
		e.Modifier = modifier.String
		e.Container = container.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns the number of catalogued symbols and files.
func (c *Catalog) Stats(ctx context.Context) (symbolCount, fileCount int, err error) {
	if err := c.adapter.QueryRowContext(ctx, "SELECT COUNT(*) FROM symbols").Scan(&symbolCount); err != nil {
		return 0, 0, err
	}
	if err := c.adapter.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&fileCount); err != nil {
		return 0, 0, err
	}
	return symbolCount, fileCount, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
