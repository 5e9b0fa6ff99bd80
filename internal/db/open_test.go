package db

import (
	"path/filepath"
	"testing"
)

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")

	database, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer database.Close()

	if _, err := database.Exec("CREATE TABLE kv (k TEXT PRIMARY KEY, v INTEGER)"); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	tx, err := database.Begin()
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	stmt, err := tx.Prepare("INSERT INTO kv (k, v) VALUES (?, ?)")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	for i, k := range []string{"a", "b", "c"} {
		if _, err := stmt.Exec(k, i); err != nil {
			t.Fatalf("stmt.Exec() error = %v", err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM kv").Scan(&count); err != nil {
		t.Fatalf("QueryRow() error = %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	rows, err := database.Query("SELECT k FROM kv ORDER BY v DESC")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		keys = append(keys, k)
	}
	if len(keys) != 3 || keys[0] != "c" {
		t.Errorf("keys = %v, want [c b a]", keys)
	}
}

func TestOpenRollback(t *testing.T) {
	database, err := Open(Config{Type: DatabaseSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer database.Close()

	if _, err := database.Exec("CREATE TABLE t (v TEXT)"); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	tx, err := database.Begin()
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if _, err := tx.Exec("INSERT INTO t (v) VALUES (?)", "x"); err != nil {
		t.Fatalf("tx.Exec() error = %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM t").Scan(&count); err != nil {
		t.Fatalf("QueryRow() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count after rollback = %d, want 0", count)
	}
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown type", Config{Type: "oracle"}},
		{"sqlite without path", Config{Type: DatabaseSQLite}},
		{"postgres without dsn", Config{Type: DatabasePostgres}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(tt.cfg); err == nil {
				t.Errorf("Open(%+v) expected error", tt.cfg)
			}
		})
	}
}
