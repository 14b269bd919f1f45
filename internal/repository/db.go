package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL flavour behind a *sql.DB.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// NewDB creates a new MySQL database connection pool with the given DSN.
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		slog.Warn("database ping failed, continuing without DB", "error", err)
	}

	return db, nil
}

// OpenSQLite opens (creating if needed) a SQLite database file.
// SQLite serializes writers, so the pool is limited to one connection.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return db, nil
}

// Open connects using driver ("mysql" or "sqlite") and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	var (
		db      *sql.DB
		dialect Dialect
		err     error
	)
	switch Dialect(driver) {
	case MySQL:
		db, err = NewDB(dsn)
		dialect = MySQL
	case SQLite:
		db, err = OpenSQLite(dsn)
		dialect = SQLite
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, "", err
	}

	if err := Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, "", err
	}
	return db, dialect, nil
}

var schema = map[Dialect][]string{
	MySQL: {
		`CREATE TABLE IF NOT EXISTS users (
			id         CHAR(36)     NOT NULL PRIMARY KEY,
			email      VARCHAR(255) NOT NULL UNIQUE,
			auth_hash  VARCHAR(255) NOT NULL,
			created_at BIGINT       NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS meals (
			id          VARCHAR(64)  NOT NULL PRIMARY KEY,
			user_id     CHAR(36)     NOT NULL,
			name        VARCHAR(255) NOT NULL,
			timestamp   BIGINT       NOT NULL,
			nutrition   JSON         NOT NULL,
			image_url   MEDIUMTEXT   NULL,
			description TEXT         NULL,
			type        VARCHAR(16)  NOT NULL,
			INDEX idx_meals_user_timestamp (user_id, timestamp)
		)`,
		`CREATE TABLE IF NOT EXISTS kv (
			k VARCHAR(255) NOT NULL PRIMARY KEY,
			v MEDIUMTEXT   NOT NULL
		)`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id         TEXT    NOT NULL PRIMARY KEY,
			email      TEXT    NOT NULL UNIQUE,
			auth_hash  TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS meals (
			id          TEXT    NOT NULL PRIMARY KEY,
			user_id     TEXT    NOT NULL,
			name        TEXT    NOT NULL,
			timestamp   INTEGER NOT NULL,
			nutrition   TEXT    NOT NULL,
			image_url   TEXT    NULL,
			description TEXT    NULL,
			type        TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_meals_user_timestamp ON meals(user_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS kv (
			k TEXT NOT NULL PRIMARY KEY,
			v TEXT NOT NULL
		)`,
	},
}

// Migrate creates the tables used by the repositories if they do not exist.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	stmts, ok := schema[dialect]
	if !ok {
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
