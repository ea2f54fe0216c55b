// Package backupdbtest creates throwaway Signal metadata databases for
// tests. It lives in its own package so test code outside backupdb can seed
// fixtures without a circular dependency.
package backupdbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"sigmedia/internal/backupdb"
)

// FullSchema is a current-generation metadata layout: conversation-aware
// export is possible.
const FullSchema = `
CREATE TABLE part (
	_id INTEGER PRIMARY KEY,
	mid INTEGER,
	unique_id INTEGER,
	ct TEXT,
	file_name TEXT,
	display_order INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE message (
	_id INTEGER PRIMARY KEY,
	date_received INTEGER,
	type INTEGER,
	thread_id INTEGER
);
CREATE TABLE thread (
	_id INTEGER PRIMARY KEY,
	recipient_id INTEGER
);
CREATE TABLE recipient (
	_id INTEGER PRIMARY KEY,
	system_joined_name TEXT,
	profile_joined_name TEXT,
	profile_given_name TEXT,
	group_id TEXT
);
CREATE TABLE groups (
	_id INTEGER PRIMARY KEY,
	group_id TEXT,
	title TEXT
);
`

// MinimalSchema carries only the attachment metadata table, as left behind
// by an incomplete or damaged backup.
const MinimalSchema = `
CREATE TABLE part (
	_id INTEGER PRIMARY KEY,
	mid INTEGER,
	unique_id INTEGER,
	ct TEXT,
	file_name TEXT,
	display_order INTEGER NOT NULL DEFAULT 0
);
`

// Create writes a metadata database with the given schema and seed
// statements into dir and returns its path.
func Create(t testing.TB, dir, schema string, seed ...string) string {
	t.Helper()

	path := filepath.Join(dir, "database.sqlite")
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	if _, err := raw.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	for _, stmt := range seed {
		if _, err := raw.Exec(stmt); err != nil {
			t.Fatalf("seed %q: %v", stmt, err)
		}
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("close test db: %v", err)
	}
	return path
}

// Open creates a metadata database in a temp directory and opens it through
// backupdb.Open so schema detection runs as it does in production.
func Open(t testing.TB, schema string, seed ...string) *backupdb.DB {
	t.Helper()

	path := Create(t, t.TempDir(), schema, seed...)
	d, err := backupdb.Open(path)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}
