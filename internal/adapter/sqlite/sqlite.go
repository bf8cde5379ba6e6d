// Package sqlite implements the on-device key-value backend on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cura/internal/domain"

	_ "modernc.org/sqlite"
)

// DB wraps a *sql.DB and implements domain.Backend.
type DB struct {
	sql *sql.DB
}

var _ domain.Backend = (*DB)(nil)

// Open opens (creating if needed) the database file at path and runs
// migrations.
func Open(ctx context.Context, path string) (*DB, error) {
	s, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite doesn't support multiple writers well
	s.SetMaxOpenConns(1)
	s.SetMaxIdleConns(1)
	s.SetConnMaxLifetime(0)

	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS kv_records (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := d.sql.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Load returns the record stored under key.
func (d *DB) Load(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM kv_records WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return v, nil
}

// Save upserts the record stored under key.
func (d *DB) Save(ctx context.Context, key string, value []byte) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO kv_records (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
