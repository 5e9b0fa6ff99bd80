package catalog

import (
	"fmt"

	"splusls/internal/db"
)

// schemaStatements returns the DDL for the catalog tables in d's dialect.
func schemaStatements(d db.Dialect) []string {
	return []string{
		d.CreateTableSQL("symbols", []db.ColumnDef{
			{Name: "id", Type: db.ColTypeAutoIncrement},
			{Name: "name", Type: db.ColTypeText},
			{Name: "folded", Type: db.ColTypeText},
			{Name: "kind", Type: db.ColTypeText},
			{Name: "data_type", Type: db.ColTypeText, Nullable: true},
			{Name: "modifier", Type: db.ColTypeText, Nullable: true},
			{Name: "uri", Type: db.ColTypeText},
			{Name: "line", Type: db.ColTypeInteger},
			{Name: "col", Type: db.ColTypeInteger},
			{Name: "container", Type: db.ColTypeText, Nullable: true},
		}),
		d.CreateIndexSQL("symbols", "idx_symbols_folded", []string{"folded"}, false),
		d.CreateIndexSQL("symbols", "idx_symbols_uri", []string{"uri"}, false),
		d.CreateIndexSQL("symbols", "idx_symbols_kind", []string{"kind"}, false),
		d.CreateTableSQL("files", []db.ColumnDef{
			{Name: "uri", Type: db.ColTypeText, PrimaryKey: true},
			{Name: "symbols", Type: db.ColTypeInteger},
			{Name: "hash", Type: db.ColTypeText, Nullable: true},
			{Name: "indexed_at", Type: db.ColTypeInteger},
		}),
	}
}

func initSchema(database db.DB, d db.Dialect) error {
	for _, stmt := range schemaStatements(d) {
		if _, err := database.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}
