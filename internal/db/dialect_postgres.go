package db

import (
	"fmt"
	"strings"
)

// PostgresDialect implements the Dialect interface for PostgreSQL.
type PostgresDialect struct{}

// Verify interface compliance at compile time.
var _ Dialect = (*PostgresDialect)(nil)

func (d *PostgresDialect) Name() string {
	return "postgres"
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgresDialect) Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	placeholders := make([]string, n)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(placeholders, ", ")
}

func (d *PostgresDialect) UpsertSQL(table string, columns []string, conflictColumns []string, updateColumns []string) string {
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), d.Placeholders(len(columns)))

	if len(conflictColumns) == 0 {
		return sql
	}

	sql += fmt.Sprintf(" ON CONFLICT (%s)", strings.Join(conflictColumns, ", "))
	if updateColumns == nil {
		updateColumns = nonConflict(columns, conflictColumns)
	}
	if len(updateColumns) == 0 {
		return sql + " DO NOTHING"
	}

	updates := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	return sql + " DO UPDATE SET " + strings.Join(updates, ", ")
}

func (d *PostgresDialect) CreateTableSQL(table string, columns []ColumnDef) string {
	var colDefs []string
	var primaryKeys []string

	for _, col := range columns {
		colDefs = append(colDefs, d.columnDefSQL(col))
		if col.PrimaryKey && col.Type != ColTypeAutoIncrement {
			primaryKeys = append(primaryKeys, col.Name)
		}
	}

	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s",
		table, strings.Join(colDefs, ",\n    "))

	if len(primaryKeys) > 0 {
		sql += fmt.Sprintf(",\n    PRIMARY KEY (%s)", strings.Join(primaryKeys, ", "))
	}

	sql += "\n)"
	return sql
}

func (d *PostgresDialect) columnDefSQL(col ColumnDef) string {
	parts := []string{col.Name}

	if col.Type == ColTypeAutoIncrement {
		parts = append(parts, "SERIAL PRIMARY KEY")
		return strings.Join(parts, " ")
	}

	parts = append(parts, d.mapColumnType(col.Type))

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

func (d *PostgresDialect) mapColumnType(ct ColumnType) string {
	switch ct {
	case ColTypeInteger:
		return "INTEGER"
	case ColTypeTimestamp:
		return "TIMESTAMPTZ"
	case ColTypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func (d *PostgresDialect) CreateIndexSQL(table, indexName string, columns []string, unique bool) string {
	uniqueStr := ""
	if unique {
		uniqueStr = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		uniqueStr, indexName, table, strings.Join(columns, ", "))
}

func (d *PostgresDialect) InitStatements() []string {
	return nil
}

func (d *PostgresDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
