// Package backupdb provides read access to the metadata database of a
// decrypted Signal backup. It tolerates the schema drift between Signal
// versions and degrades to a minimal projection when the relationship
// tables (message, thread, recipient, groups) did not survive the backup.
package backupdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// DB wraps the backup's SQLite metadata database together with the schema
// layout detected at open time.
type DB struct {
	db     *sql.DB
	Schema Schema
}

const sqliteParams = "?_busy_timeout=5000&_query_only=true"

// Open opens the metadata database at path read-only and detects its schema.
// It fails when the database is too damaged for media export: the part table
// and its display_order column are required.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("metadata database: %w", err)
	}
	db, err := sql.Open("sqlite3", path+sqliteParams)
	if err != nil {
		return nil, fmt.Errorf("open metadata database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping metadata database: %w", err)
	}

	d := &DB{db: db}
	if err := d.detectSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// isSQLiteError checks if err is a sqlite3.Error with a message containing
// substr. Type-asserting with errors.As is more robust than matching on
// err.Error() alone. Handles both value and pointer forms.
func isSQLiteError(err error, substr string) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), substr)
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return strings.Contains(sqliteErrPtr.Error(), substr)
	}
	return false
}

// HasTable reports whether a table with the given name exists.
func (d *DB) HasTable(name string) (bool, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %q: %w", name, err)
	}
	return n > 0, nil
}

// HasColumn reports whether the named table has the named column.
func (d *DB) HasColumn(table, column string) (bool, error) {
	rows, err := d.db.Query(fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return false, fmt.Errorf("table_info %q: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name, typ string
			notnull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("scan table_info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
