package db

import (
	"fmt"
	"strings"
)

// SQLiteDialect implements the Dialect interface for SQLite.
type SQLiteDialect struct{}

// Verify interface compliance at compile time.
var _ Dialect = (*SQLiteDialect)(nil)

func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

func (d *SQLiteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SQLiteDialect) Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	placeholders := make([]string, n)
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return strings.Join(placeholders, ", ")
}

func (d *SQLiteDialect) UpsertSQL(table string, columns []string, conflictColumns []string, updateColumns []string) string {
	cols := strings.Join(columns, ", ")
	placeholders := d.Placeholders(len(columns))

	if len(conflictColumns) == 0 {
		// Replaces the whole row on any uniqueness conflict.
		return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", table, cols, placeholders)
	}

	if updateColumns == nil {
		updateColumns = nonConflict(columns, conflictColumns)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s)",
		table, cols, placeholders, strings.Join(conflictColumns, ", "))
	if len(updateColumns) == 0 {
		return sql + " DO NOTHING"
	}
	updates := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updates[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}
	return sql + " DO UPDATE SET " + strings.Join(updates, ", ")
}

func (d *SQLiteDialect) CreateTableSQL(table string, columns []ColumnDef) string {
	var primaryKeyCount int
	for _, col := range columns {
		if col.PrimaryKey && col.Type != ColTypeAutoIncrement {
			primaryKeyCount++
		}
	}

	var colDefs []string
	var primaryKeys []string
	useCompositePK := primaryKeyCount > 1

	for _, col := range columns {
		colDefs = append(colDefs, d.columnDefSQL(col, useCompositePK))
		if useCompositePK && col.PrimaryKey && col.Type != ColTypeAutoIncrement {
			primaryKeys = append(primaryKeys, col.Name)
		}
	}

	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s",
		table, strings.Join(colDefs, ",\n    "))

	if len(primaryKeys) > 1 {
		sql += fmt.Sprintf(",\n    PRIMARY KEY (%s)", strings.Join(primaryKeys, ", "))
	}

	sql += "\n)"
	return sql
}

func (d *SQLiteDialect) columnDefSQL(col ColumnDef, useCompositePK bool) string {
	parts := []string{col.Name}

	if col.Type == ColTypeAutoIncrement {
		parts = append(parts, "INTEGER PRIMARY KEY AUTOINCREMENT")
		return strings.Join(parts, " ")
	}

	parts = append(parts, d.mapColumnType(col.Type))

	if col.PrimaryKey && !useCompositePK {
		parts = append(parts, "PRIMARY KEY")
	}
	if !col.Nullable && !col.PrimaryKey {
		parts = append(parts, "NOT NULL")
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	if col.Default != "" {
		parts = append(parts, "DEFAULT", col.Default)
	}

	return strings.Join(parts, " ")
}

func (d *SQLiteDialect) mapColumnType(ct ColumnType) string {
	switch ct {
	case ColTypeInteger, ColTypeTimestamp, ColTypeBoolean:
		// unix seconds and 0/1 booleans
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func (d *SQLiteDialect) CreateIndexSQL(table, indexName string, columns []string, unique bool) string {
	uniqueStr := ""
	if unique {
		uniqueStr = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		uniqueStr, indexName, table, strings.Join(columns, ", "))
}

func (d *SQLiteDialect) InitStatements() []string {
	return []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	}
}

func (d *SQLiteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
