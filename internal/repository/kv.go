package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrKeyNotFound = errors.New("key not found")

// KVStore is a string key/value table for client-local state such as goals
// and the persisted session token.
type KVStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewKVStore creates a new KVStore.
func NewKVStore(db *sql.DB, dialect Dialect) *KVStore {
	return &KVStore{db: db, dialect: dialect}
}

// Get returns the value stored under key.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrKeyNotFound
		}
		return "", err
	}
	return v, nil
}

// Put stores value under key, replacing any existing value.
func (s *KVStore) Put(ctx context.Context, key, value string) error {
	var query string
	switch s.dialect {
	case MySQL:
		query = `INSERT INTO kv (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)`
	case SQLite:
		query = `INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`
	default:
		return fmt.Errorf("unsupported dialect %q", s.dialect)
	}

	_, err := s.db.ExecContext(ctx, query, key, value)
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, key)
	return err
}
