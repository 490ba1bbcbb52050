// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// store.go - Durable append-only audit log backed by SQLite.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("audit store closed")

// schema holds the full audit history. Rows are only ever inserted; there is
// no update or delete path.
const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	at       TEXT NOT NULL,
	kind     TEXT NOT NULL,
	resource TEXT NOT NULL DEFAULT '',
	session  TEXT NOT NULL DEFAULT '',
	mode     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_log_at ON audit_log(at);
CREATE INDEX IF NOT EXISTS idx_audit_log_resource ON audit_log(resource);
`

// Store is the durable half of the audit sink.
type Store struct {
	db     *sql.DB
	insert *sql.Stmt
}

// OpenStore opens (creating if necessary) the audit database at path.
func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	insert, err := db.Prepare(
		"INSERT INTO audit_log (at, kind, resource, session, mode) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare audit insert: %w", err)
	}

	return &Store{db: db, insert: insert}, nil
}

// Append writes one entry to the durable log.
func (s *Store) Append(e Entry) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	_, err := s.insert.Exec(
		e.Time.UTC().Format(time.RFC3339Nano),
		string(e.Kind),
		e.Resource,
		e.Session,
		e.Mode,
	)
	return err
}

// Tail returns up to n entries, most recent first. n <= 0 defaults to 50.
func (s *Store) Tail(ctx context.Context, n int) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	if n <= 0 {
		n = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT at, kind, resource, session, mode FROM audit_log ORDER BY id DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var at string
		var e Entry
		var kind string
		if err := rows.Scan(&at, &kind, &e.Resource, &e.Session, &e.Mode); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		e.Kind = Kind(kind)
		if t, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
			e.Time = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count reports the total number of entries ever appended.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrStoreClosed
	}
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log").Scan(&n)
	return n, err
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if s.insert != nil {
		s.insert.Close()
	}
	err := s.db.Close()
	s.db = nil
	return err
}
