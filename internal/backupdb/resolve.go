package backupdb

import (
	"database/sql"
	"errors"
	"fmt"

	"sigmedia/internal/attachment"
)

// ErrFiltered marks an attachment whose metadata lookup returned no rows
// while a thread/date filter was active: it belongs to an excluded
// conversation or period and should be skipped silently.
var ErrFiltered = errors.New("attachment excluded by filter")

// ErrRowCount marks a lookup that returned an unexpected number of rows
// (zero without a filter, or more than one). The attachment is skipped but
// the batch continues.
var ErrRowCount = errors.New("unexpected metadata row count")

// Record is the metadata resolved for one attachment. The minimal fields
// are always populated from the part table; the relationship fields are
// only meaningful when the schema is full.
type Record struct {
	ContentType  sql.NullString
	FileName     sql.NullString
	DisplayOrder int64

	// Full-schema fields. All absent in minimal mode.
	DateReceived sql.NullInt64
	MessageType  sql.NullInt64
	ThreadID     sql.NullInt64
	ChatPartner  sql.NullString
}

// Outgoing reports whether the message carrying this attachment was sent by
// the backup's owner. The direction lives in the low bits of the message
// type: base types 21 through 26 are the outbox/sending/sent states.
func (r *Record) Outgoing() bool {
	if !r.MessageType.Valid {
		return false
	}
	base := r.MessageType.Int64 & 0x1f
	return base >= 21 && base <= 26
}

// HasConversation reports whether the record carries enough relationship
// data to place the attachment in a per-conversation directory.
func (r *Record) HasConversation() bool {
	return r.ThreadID.Valid && r.ChatPartner.Valid && r.MessageType.Valid
}

// Resolve looks up the metadata row for one attachment. Exactly one row is
// expected; see ErrFiltered and ErrRowCount for the two ways a lookup can
// miss. The returned error always carries the attachment key.
func (d *DB) Resolve(key attachment.Key, filter Filter) (*Record, error) {
	query, scan := d.buildLookup()
	rows, err := d.db.Query(query+filter.clause, append([]any{key.RowID, key.UniqueID}, filter.args...)...)
	if err != nil {
		return nil, fmt.Errorf("metadata lookup (%s): %w", key, err)
	}
	defer rows.Close()

	var rec *Record
	count := 0
	for rows.Next() {
		count++
		if count > 1 {
			continue
		}
		r := &Record{}
		if err := scan(rows, r); err != nil {
			return nil, fmt.Errorf("scan metadata (%s): %w", key, err)
		}
		rec = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadata lookup (%s): %w", key, err)
	}

	switch {
	case count == 0 && filter.Active():
		return nil, ErrFiltered
	case count != 1:
		return nil, fmt.Errorf("%w: %d rows (%s)", ErrRowCount, count, key)
	}
	return rec, nil
}

// buildLookup assembles the per-attachment query for the detected schema,
// returning the SQL and a matching row scanner.
func (d *DB) buildLookup() (string, func(*sql.Rows, *Record) error) {
	if !d.Schema.Full {
		query := `SELECT part.ct, part.file_name, part.display_order
			FROM part WHERE part._id = ? AND part.unique_id = ?`
		return query, func(rows *sql.Rows, r *Record) error {
			return rows.Scan(&r.ContentType, &r.FileName, &r.DisplayOrder)
		}
	}

	s := d.Schema
	query := fmt.Sprintf(`SELECT part.ct, part.file_name, part.display_order,
			%[1]s.date_received, %[1]s.%[2]s, %[1]s.thread_id,
			%[3]s AS chatpartner
		FROM part
		LEFT JOIN %[1]s ON part.mid = %[1]s._id
		LEFT JOIN thread ON %[1]s.thread_id = thread._id
		LEFT JOIN recipient ON thread.%[4]s = recipient._id
		LEFT JOIN groups ON recipient.group_id = groups.group_id
		WHERE part._id = ? AND part.unique_id = ?`,
		s.MessageTable, s.MessageTypeColumn, s.chatPartnerExpr, s.ThreadRecipientColumn)

	return query, func(rows *sql.Rows, r *Record) error {
		return rows.Scan(&r.ContentType, &r.FileName, &r.DisplayOrder,
			&r.DateReceived, &r.MessageType, &r.ThreadID, &r.ChatPartner)
	}
}
