package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, dialect, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	if dialect != SQLite {
		t.Fatalf("Open() dialect = %q, want %q", dialect, SQLite)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, _, err := Open(context.Background(), "postgres", "whatever"); err == nil {
		t.Fatal("Open() expected error for unsupported driver")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := Migrate(context.Background(), db, SQLite); err != nil {
		t.Fatalf("second Migrate() unexpected error: %v", err)
	}
}
