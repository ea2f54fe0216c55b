package backupdb

import (
	"errors"
	"fmt"
)

// ErrMinimalSchema is returned by operations that need the relationship
// tables when the backup only carries attachment metadata.
var ErrMinimalSchema = errors.New("backup has minimal schema: thread and recipient tables are missing")

// ThreadInfo summarizes one conversation for thread selection.
type ThreadInfo struct {
	ID           int64
	ChatPartner  string
	MessageCount int64
}

// ListThreads returns every thread with its resolved conversation name and
// message count. Threads whose name resolves to nothing are listed with an
// empty ChatPartner; the exporter substitutes "Contact <id>" for those.
func (d *DB) ListThreads() ([]ThreadInfo, error) {
	if !d.Schema.Full {
		return nil, ErrMinimalSchema
	}

	s := d.Schema
	query := fmt.Sprintf(`SELECT thread._id, %[1]s,
			(SELECT COUNT(*) FROM %[2]s WHERE %[2]s.thread_id = thread._id)
		FROM thread
		LEFT JOIN recipient ON thread.%[3]s = recipient._id
		LEFT JOIN groups ON recipient.group_id = groups.group_id
		ORDER BY thread._id`,
		s.chatPartnerExpr, s.MessageTable, s.ThreadRecipientColumn)

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var threads []ThreadInfo
	for rows.Next() {
		var (
			t    ThreadInfo
			name *string
		)
		if err := rows.Scan(&t.ID, &name, &t.MessageCount); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		if name != nil {
			t.ChatPartner = *name
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// Stats holds summary counts from the metadata database.
type Stats struct {
	PartCount    int64
	MessageCount int64
	ThreadCount  int64
}

// GetStats returns attachment/message/thread counts. Counts whose table is
// missing are left at zero.
func (d *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	if err := d.db.QueryRow(`SELECT COUNT(*) FROM part`).Scan(&stats.PartCount); err != nil {
		return nil, fmt.Errorf("count parts: %w", err)
	}

	if d.Schema.MessageTable != "" {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, d.Schema.MessageTable)
		if err := d.db.QueryRow(query).Scan(&stats.MessageCount); err != nil {
			return nil, fmt.Errorf("count messages: %w", err)
		}
	}

	if err := d.db.QueryRow(`SELECT COUNT(*) FROM thread`).Scan(&stats.ThreadCount); err != nil {
		if !isSQLiteError(err, "no such table") {
			return nil, fmt.Errorf("count threads: %w", err)
		}
	}

	return stats, nil
}
