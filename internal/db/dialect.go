package db

// Dialect abstracts SQL syntax differences between database engines.
type Dialect interface {
	// Name returns the dialect name ("sqlite" or "postgres").
	Name() string

	// Placeholder returns the parameter placeholder for the given index (1-based).
	// SQLite uses "?", PostgreSQL uses "$1", "$2", etc.
	Placeholder(index int) string

	// Placeholders returns n placeholders joined by ", ".
	Placeholders(n int) string

	// UpsertSQL generates an insert-or-update statement.
	// conflictColumns define uniqueness; updateColumns default to every
	// non-conflict column when nil.
	UpsertSQL(table string, columns []string, conflictColumns []string, updateColumns []string) string

	// CreateTableSQL generates a CREATE TABLE IF NOT EXISTS statement.
	CreateTableSQL(table string, columns []ColumnDef) string

	// CreateIndexSQL generates a CREATE INDEX IF NOT EXISTS statement.
	CreateIndexSQL(table, indexName string, columns []string, unique bool) string

	// InitStatements returns statements to run right after opening.
	InitStatements() []string

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string
}

// ColumnDef defines a column for table creation.
type ColumnDef struct {
	Name       string
	Type       ColumnType
	Nullable   bool
	PrimaryKey bool
	Unique     bool
	Default    string // SQL expression for default value
}

// ColumnType represents abstract column types that map to database-specific types.
type ColumnType int

const (
	ColTypeInteger ColumnType = iota
	ColTypeText
	ColTypeTimestamp
	ColTypeBoolean
	ColTypeAutoIncrement // Auto-incrementing primary key
)

// String returns the string representation of the column type.
func (ct ColumnType) String() string {
	switch ct {
	case ColTypeInteger:
		return "INTEGER"
	case ColTypeText:
		return "TEXT"
	case ColTypeTimestamp:
		return "TIMESTAMP"
	case ColTypeBoolean:
		return "BOOLEAN"
	case ColTypeAutoIncrement:
		return "AUTOINCREMENT"
	default:
		return "UNKNOWN"
	}
}

// GetDialect returns the appropriate dialect for the given database type.
func GetDialect(dbType DatabaseType) Dialect {
	switch dbType {
	case DatabasePostgres:
		return &PostgresDialect{}
	default:
		return &SQLiteDialect{}
	}
}

// DatabaseType identifies the database engine.
type DatabaseType string

const (
	// DatabaseSQLite is the SQLite database engine.
	DatabaseSQLite DatabaseType = "sqlite"

	// DatabasePostgres is the PostgreSQL database engine.
	DatabasePostgres DatabaseType = "postgres"
)

func nonConflict(columns, conflictColumns []string) []string {
	var out []string
	for _, col := range columns {
		isConflict := false
		for _, cc := range conflictColumns {
			if col == cc {
				isConflict = true
				break
			}
		}
		if !isConflict {
			out = append(out, col)
		}
	}
	return out
}
