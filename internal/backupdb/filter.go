package backupdb

import (
	"log/slog"
	"strings"

	"sigmedia/internal/dateparse"
)

// Filter is a compiled thread/date restriction: a SQL fragment that can be
// appended to the per-attachment metadata query, plus its bound arguments.
// The zero value matches everything.
type Filter struct {
	clause string
	args   []any
}

// Active reports whether the filter restricts anything. Zero rows from a
// lookup under an active filter means the attachment belongs to an excluded
// thread or date, not that the database is inconsistent.
func (f Filter) Active() bool {
	return f.clause != ""
}

// CompileFilter turns the requested thread ids and date-range string pairs
// into a Filter against schema's message table. Ranges that fail to parse or
// are inverted are dropped with a warning; the remaining ranges are combined
// with OR, and the thread and date restrictions with AND.
//
// The fragment references thread._id and the message table's date_received
// column, so a compiled non-empty Filter is only meaningful on a full schema.
func CompileFilter(schema Schema, threadIDs []int64, dateRanges [][2]string, logger *slog.Logger) Filter {
	var f Filter
	var sb strings.Builder

	if len(threadIDs) > 0 {
		sb.WriteString(" AND thread._id IN (")
		for i, id := range threadIDs {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("?")
			f.args = append(f.args, id)
		}
		sb.WriteString(")")
	}

	dateCol := schema.MessageTable + ".date_received"
	wroteRange := false
	for _, r := range dateRanges {
		start, _, err := dateparse.Parse(r[0])
		if err != nil {
			logger.Warn("skipping date range: bad start", "start", r[0], "end", r[1], "error", err)
			continue
		}
		end, prec, err := dateparse.Parse(r[1])
		if err != nil {
			logger.Warn("skipping date range: bad end", "start", r[0], "end", r[1], "error", err)
			continue
		}
		end = dateparse.EndOfRange(end, prec)
		if end < start {
			logger.Warn("skipping date range: end before start", "start", r[0], "end", r[1])
			continue
		}

		if !wroteRange {
			sb.WriteString(" AND (")
		} else {
			sb.WriteString(" OR ")
		}
		sb.WriteString(dateCol)
		sb.WriteString(" BETWEEN ? AND ?")
		f.args = append(f.args, start, end)
		wroteRange = true
	}
	if wroteRange {
		sb.WriteString(")")
	}

	f.clause = sb.String()
	return f
}
