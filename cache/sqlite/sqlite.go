// Package sqlite backs the matrix element cache with a single SQLite file.
// One file is easier to ship between lab machines than a record directory,
// and SQLite already handles locking across the processes of a parameter
// scan sharing it.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pairspec/pairspec/cache"
)

const schema = `
	CREATE TABLE IF NOT EXISTS matrix_elements (
		digest BLOB PRIMARY KEY,
		record BLOB NOT NULL
	)
`

// Store implements cache.Store on a SQLite database. Rows hold the encoded
// record keyed by the content digest, and insert-if-absent maps onto
// INSERT OR IGNORE.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. WAL mode keeps
// concurrent readers unblocked while a worker inserts.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Load implements cache.Store.
func (s *Store) Load(ctx context.Context, key cache.Key) (float64, bool, error) {
	digest := key.Digest()

	var record []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM matrix_elements WHERE digest = ?`, digest[:],
	).Scan(&record)
	switch {
	case err == sql.ErrNoRows:
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("sqlite: load: %w", err)
	}

	gotKey, value, _, err := cache.DecodeRecord(record)
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: load: %w", err)
	}
	if gotKey != key {
		return 0, false, fmt.Errorf("sqlite: record key mismatch for digest %x", digest[:8])
	}
	return value, true, nil
}

// Insert implements cache.Store. INSERT OR IGNORE leaves an existing row
// untouched, so the first writer wins.
func (s *Store) Insert(ctx context.Context, key cache.Key, value float64) error {
	digest := key.Digest()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO matrix_elements (digest, record) VALUES (?, ?)`,
		digest[:], cache.EncodeRecord(key, value),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert: %w", err)
	}
	return nil
}

// Enumerate implements cache.Enumerator.
func (s *Store) Enumerate(ctx context.Context, fn func(key cache.Key, value float64) bool) error {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM matrix_elements`)
	if err != nil {
		return fmt.Errorf("sqlite: enumerate: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return fmt.Errorf("sqlite: enumerate: %w", err)
		}
		key, value, _, err := cache.DecodeRecord(record)
		if err != nil {
			return fmt.Errorf("sqlite: enumerate: %w", err)
		}
		if !fn(key, value) {
			return nil
		}
	}
	return rows.Err()
}

// Len returns the number of stored entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matrix_elements`).Scan(&n)
	return n, err
}

// Close implements cache.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
