package mediaexport

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"sigmedia/internal/attachment"
	"sigmedia/internal/backupdb"
	"sigmedia/internal/sanitize"
)

// Exporter writes the attachments of one backup to BaseDir. Attachments are
// processed strictly one at a time: each is resolved, named, written and
// memory-released before the next begins, which caps peak blob memory at a
// single attachment and keeps the registry and filesystem checks lock-free.
type Exporter struct {
	DB      *backupdb.DB
	BaseDir string
	Filter  backupdb.Filter
	Logger  *slog.Logger
}

// Stats accumulates the outcome of one export run. A non-empty Errors slice
// does not mean the run failed: per-attachment problems are isolated and the
// loop always drains the full attachment set.
type Stats struct {
	Saved    int
	Filtered int
	Skipped  int
	Bytes    int64
	Errors   []string
}

// PrepareBaseDir makes the output base directory usable, creating it when
// missing. Exporting into an existing directory that already has entries is
// refused unless overwrite is set; existing files are still never clobbered,
// collisions get a counter suffix instead.
func (e *Exporter) PrepareBaseDir(overwrite bool) error {
	entries, err := os.ReadDir(e.BaseDir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(e.BaseDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory %s is not empty (use --overwrite to export into it anyway)", e.BaseDir)
	}
	return nil
}

// Run exports every attachment in the store. Failures are logged with the
// attachment's identifiers and skipped; only the caller-side preparation
// steps (database, base directory) can abort an export before it starts.
func (e *Exporter) Run(store *attachment.Store) Stats {
	var stats Stats
	registry := NewRegistry()

	// The filter fragment references thread and message columns that the
	// minimal projection cannot join. Dropping it (loudly) beats silently
	// producing an empty export.
	filter := e.Filter
	if filter.Active() && !e.DB.Schema.Full {
		e.Logger.Warn("thread/date filters need the full schema; this backup is minimal, exporting everything")
		filter = backupdb.Filter{}
	}

	total := store.Len()
	for i, blob := range store.Blobs() {
		e.Logger.Debug("saving attachment", "n", i+1, "total", total, "rowid", blob.RowID, "uniqueid", blob.UniqueID)
		e.exportOne(blob, filter, registry, &stats)
	}

	return stats
}

// exportOne handles a single attachment from metadata lookup to write.
// The blob's memory is released on the way out no matter what happened.
func (e *Exporter) exportOne(blob *attachment.Blob, filter backupdb.Filter, registry *Registry, stats *Stats) {
	defer blob.Release()

	rec, err := e.DB.Resolve(blob.Key, filter)
	if err != nil {
		if errors.Is(err, backupdb.ErrFiltered) {
			stats.Filtered++
			return
		}
		e.skip(stats, "%v", err)
		return
	}

	// The unique id doubles as a millisecond timestamp when the message row
	// carries no received time (minimal backups).
	timestamp := blob.UniqueID
	if rec.DateReceived.Valid {
		timestamp = rec.DateReceived.Int64
	}

	filename := ""
	if rec.FileName.Valid {
		filename = sanitize.Filename(rec.FileName.String)
	}
	if filename == "" {
		filename = synthesizeFilename(timestamp, rec.DisplayOrder, rec.ContentType.String, e.Logger)
	}

	targetDir := e.BaseDir
	if e.DB.Schema.Full && rec.HasConversation() {
		dir, err := e.conversationDir(rec, registry)
		if err != nil {
			e.skip(stats, "%v (%s)", err, blob.Key)
			return
		}
		targetDir = dir
	}

	filename, err = uniqueFilename(targetDir, filename)
	if err != nil {
		e.skip(stats, "resolve unique filename: %v (%s)", err, blob.Key)
		return
	}
	path := filepath.Join(targetDir, filename)

	data, err := blob.Data()
	if err != nil {
		e.skip(stats, "%v", err)
		return
	}
	if err := writeBlob(path, data, timestamp, e.Logger); err != nil {
		e.skip(stats, "%s: %v (%s)", path, err, blob.Key)
		return
	}

	stats.Saved++
	stats.Bytes += int64(len(data))
}

// conversationDir places the attachment under its conversation's
// sent/received subtree, creating directories as needed.
func (e *Exporter) conversationDir(rec *backupdb.Record, registry *Registry) (string, error) {
	name := registry.DirName(rec.ThreadID.Int64, sanitize.Filename(rec.ChatPartner.String))

	convDir := filepath.Join(e.BaseDir, name)
	if err := os.MkdirAll(convDir, 0755); err != nil {
		return "", fmt.Errorf("create conversation directory %s: %w", convDir, err)
	}

	sub := "received"
	if rec.Outgoing() {
		sub = "sent"
	}
	targetDir := filepath.Join(convDir, sub)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", targetDir, err)
	}
	return targetDir, nil
}

func (e *Exporter) skip(stats *Stats, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.Logger.Error(msg)
	stats.Skipped++
	stats.Errors = append(stats.Errors, msg)
}
