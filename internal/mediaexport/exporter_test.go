package mediaexport

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sigmedia/internal/attachment"
	"sigmedia/internal/backupdb"
	"sigmedia/internal/backupdb/backupdbtest"
)

const (
	typeInbox = 20
	typeSent  = 23
)

// testBackup assembles a decrypted-backup directory: the metadata database
// plus one blob file per attachment, then opens both sides.
type testBackup struct {
	db    *backupdb.DB
	store *attachment.Store
	out   string
}

func newTestBackup(t *testing.T, schema string, blobs map[attachment.Key][]byte, seed ...string) *testBackup {
	t.Helper()

	backupDir := t.TempDir()
	path := backupdbtest.Create(t, backupDir, schema, seed...)

	for key, content := range blobs {
		name := fmt.Sprintf("Attachment_%d_%d.bin", key.RowID, key.UniqueID)
		if err := os.WriteFile(filepath.Join(backupDir, name), content, 0600); err != nil {
			t.Fatalf("write blob: %v", err)
		}
	}

	db, err := backupdb.Open(path)
	if err != nil {
		t.Fatalf("open metadata db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := attachment.ScanDir(backupDir)
	if err != nil {
		t.Fatalf("scan backup dir: %v", err)
	}

	return &testBackup{db: db, store: store, out: t.TempDir()}
}

func (b *testBackup) exporter(filter backupdb.Filter) *Exporter {
	return &Exporter{DB: b.db, BaseDir: b.out, Filter: filter, Logger: discardLogger()}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

func TestRunFullBackup(t *testing.T) {
	received := time.Date(2023, 3, 14, 15, 9, 26, 0, time.Local)
	photo := []byte("jpeg bytes")
	clip := []byte("mp4 bytes")

	b := newTestBackup(t, backupdbtest.FullSchema,
		map[attachment.Key][]byte{
			{RowID: 1, UniqueID: 1000}: photo,
			{RowID: 2, UniqueID: 1001}: clip,
		},
		`INSERT INTO recipient (_id, system_joined_name) VALUES (1, 'Alice Smith')`,
		`INSERT INTO thread (_id, recipient_id) VALUES (10, 1)`,
		fmt.Sprintf(`INSERT INTO message (_id, date_received, type, thread_id) VALUES
			(100, %d, %d, 10),
			(101, %d, %d, 10)`, received.UnixMilli(), typeInbox, received.UnixMilli(), typeSent),
		`INSERT INTO part (_id, mid, unique_id, ct, file_name, display_order) VALUES
			(1, 100, 1000, 'image/jpeg', 'holiday.jpg', 0),
			(2, 101, 1001, 'video/mp4', NULL, 0)`,
	)

	stats := b.exporter(backupdb.Filter{}).Run(b.store)

	if stats.Saved != 2 || stats.Skipped != 0 || stats.Filtered != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Bytes != int64(len(photo)+len(clip)) {
		t.Errorf("Bytes = %d", stats.Bytes)
	}

	// Stored filename, incoming message → received subtree, exact bytes.
	got := readFile(t, filepath.Join(b.out, "Alice Smith", "received", "holiday.jpg"))
	if !bytes.Equal(got, photo) {
		t.Error("round-trip content mismatch for holiday.jpg")
	}

	// No stored filename, outgoing message → sent subtree, synthesized name.
	wantName := received.Format("signal-2006-01-02-150405") + ".mp4"
	got = readFile(t, filepath.Join(b.out, "Alice Smith", "sent", wantName))
	if !bytes.Equal(got, clip) {
		t.Error("round-trip content mismatch for synthesized file")
	}

	// Modification time carries the message timestamp, seconds precision.
	info, err := os.Stat(filepath.Join(b.out, "Alice Smith", "received", "holiday.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(received) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), received)
	}
}

func TestRunThreadFilter(t *testing.T) {
	ts := time.Date(2023, 5, 1, 12, 0, 0, 0, time.Local).UnixMilli()

	b := newTestBackup(t, backupdbtest.FullSchema,
		map[attachment.Key][]byte{
			{RowID: 1, UniqueID: 1000}: []byte("keep"),
			{RowID: 2, UniqueID: 1001}: []byte("drop"),
		},
		`INSERT INTO recipient (_id, system_joined_name) VALUES (1, 'Alice'), (2, 'Bob')`,
		`INSERT INTO thread (_id, recipient_id) VALUES (10, 1), (11, 2)`,
		fmt.Sprintf(`INSERT INTO message (_id, date_received, type, thread_id) VALUES
			(100, %d, %d, 10),
			(101, %d, %d, 11)`, ts, typeInbox, ts, typeInbox),
		`INSERT INTO part (_id, mid, unique_id, ct, file_name, display_order) VALUES
			(1, 100, 1000, 'image/jpeg', 'keep.jpg', 0),
			(2, 101, 1001, 'image/jpeg', 'drop.jpg', 0)`,
	)

	filter := backupdb.CompileFilter(b.db.Schema, []int64{10}, nil, discardLogger())
	stats := b.exporter(filter).Run(b.store)

	if stats.Saved != 1 || stats.Filtered != 1 || stats.Skipped != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if _, err := os.Stat(filepath.Join(b.out, "Alice", "received", "keep.jpg")); err != nil {
		t.Error("selected attachment missing:", err)
	}

	// The excluded attachment left no file anywhere under the output dir.
	err := filepath.WalkDir(b.out, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == "drop.jpg" {
			t.Errorf("excluded attachment was written: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRunMinimalBackupFlatLayout(t *testing.T) {
	// unique_id doubles as the timestamp when no message row exists.
	uid := time.Date(2022, 11, 5, 8, 30, 0, 0, time.Local).UnixMilli()

	b := newTestBackup(t, backupdbtest.MinimalSchema,
		map[attachment.Key][]byte{
			{RowID: 1, UniqueID: uid}: []byte("flat"),
		},
		fmt.Sprintf(`INSERT INTO part (_id, mid, unique_id, ct, file_name, display_order)
			VALUES (1, 100, %d, 'image/png', NULL, 0)`, uid),
	)

	stats := b.exporter(backupdb.Filter{}).Run(b.store)
	if stats.Saved != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	wantName := time.UnixMilli(uid).Format("signal-2006-01-02-150405") + ".png"
	if _, err := os.Stat(filepath.Join(b.out, wantName)); err != nil {
		t.Errorf("expected flat file %s: %v", wantName, err)
	}
}

func TestRunMinimalBackupIgnoresFilters(t *testing.T) {
	uid := time.Date(2022, 11, 5, 8, 30, 0, 0, time.Local).UnixMilli()

	b := newTestBackup(t, backupdbtest.MinimalSchema,
		map[attachment.Key][]byte{
			{RowID: 1, UniqueID: uid}: []byte("flat"),
		},
		fmt.Sprintf(`INSERT INTO part (_id, mid, unique_id, ct, file_name, display_order)
			VALUES (1, 100, %d, 'image/png', 'pic.png', 0)`, uid),
	)

	// The minimal projection cannot join thread/date columns; the filter is
	// dropped with a warning instead of wedging every lookup.
	filter := backupdb.CompileFilter(
		backupdb.Schema{MessageTable: "message"}, []int64{10}, nil, discardLogger())
	stats := b.exporter(filter).Run(b.store)

	if stats.Saved != 1 || stats.Skipped != 0 || stats.Filtered != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestRunSameNameThreads(t *testing.T) {
	ts := time.Date(2023, 5, 1, 12, 0, 0, 0, time.Local).UnixMilli()

	b := newTestBackup(t, backupdbtest.FullSchema,
		map[attachment.Key][]byte{
			{RowID: 1, UniqueID: 1000}: []byte("one"),
			{RowID: 2, UniqueID: 1001}: []byte("two"),
		},
		`INSERT INTO recipient (_id, system_joined_name) VALUES (1, 'Alice'), (2, 'Alice')`,
		`INSERT INTO thread (_id, recipient_id) VALUES (10, 1), (11, 2)`,
		fmt.Sprintf(`INSERT INTO message (_id, date_received, type, thread_id) VALUES
			(100, %d, %d, 10),
			(101, %d, %d, 11)`, ts, typeInbox, ts, typeInbox),
		`INSERT INTO part (_id, mid, unique_id, ct, file_name, display_order) VALUES
			(1, 100, 1000, 'image/jpeg', 'a.jpg', 0),
			(2, 101, 1001, 'image/jpeg', 'b.jpg', 0)`,
	)

	stats := b.exporter(backupdb.Filter{}).Run(b.store)
	if stats.Saved != 2 {
		t.Fatalf("stats = %+v", stats)
	}

	if _, err := os.Stat(filepath.Join(b.out, "Alice", "received", "a.jpg")); err != nil {
		t.Error("first thread file missing:", err)
	}
	if _, err := os.Stat(filepath.Join(b.out, "Alice(2)", "received", "b.jpg")); err != nil {
		t.Error("second thread file missing:", err)
	}
}

func TestRunUnsanitizableStoredName(t *testing.T) {
	received := time.Date(2023, 7, 1, 9, 0, 0, 0, time.Local)

	b := newTestBackup(t, backupdbtest.FullSchema,
		map[attachment.Key][]byte{
			{RowID: 1, UniqueID: 1000}: []byte("reserved"),
		},
		`INSERT INTO recipient (_id, system_joined_name) VALUES (1, 'Alice')`,
		`INSERT INTO thread (_id, recipient_id) VALUES (10, 1)`,
		fmt.Sprintf(`INSERT INTO message (_id, date_received, type, thread_id)
			VALUES (100, %d, %d, 10)`, received.UnixMilli(), typeInbox),
		`INSERT INTO part (_id, mid, unique_id, ct, file_name, display_order)
			VALUES (1, 100, 1000, 'image/jpeg', 'COM1', 3)`,
	)

	stats := b.exporter(backupdb.Filter{}).Run(b.store)
	if stats.Saved != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	// "COM1" cannot be sanitized, so the name is synthesized, including the
	// non-zero display order.
	wantName := received.Format("signal-2006-01-02-150405") + "_3.jpg"
	if _, err := os.Stat(filepath.Join(b.out, "Alice", "received", wantName)); err != nil {
		t.Errorf("expected synthesized file %s: %v", wantName, err)
	}
}

func TestRunCollidingFilenames(t *testing.T) {
	ts := time.Date(2023, 5, 1, 12, 0, 0, 0, time.Local).UnixMilli()

	b := newTestBackup(t, backupdbtest.FullSchema,
		map[attachment.Key][]byte{
			{RowID: 1, UniqueID: 1000}: []byte("first"),
			{RowID: 2, UniqueID: 1001}: []byte("second"),
		},
		`INSERT INTO recipient (_id, system_joined_name) VALUES (1, 'Alice')`,
		`INSERT INTO thread (_id, recipient_id) VALUES (10, 1)`,
		fmt.Sprintf(`INSERT INTO message (_id, date_received, type, thread_id) VALUES
			(100, %d, %d, 10),
			(101, %d, %d, 10)`, ts, typeInbox, ts, typeInbox),
		`INSERT INTO part (_id, mid, unique_id, ct, file_name, display_order) VALUES
			(1, 100, 1000, 'image/jpeg', 'photo.jpg', 0),
			(2, 101, 1001, 'image/jpeg', 'photo.jpg', 0)`,
	)

	stats := b.exporter(backupdb.Filter{}).Run(b.store)
	if stats.Saved != 2 {
		t.Fatalf("stats = %+v", stats)
	}

	dir := filepath.Join(b.out, "Alice", "received")
	if got := readFile(t, filepath.Join(dir, "photo.jpg")); string(got) != "first" {
		t.Errorf("photo.jpg = %q", got)
	}
	if got := readFile(t, filepath.Join(dir, "photo (2).jpg")); string(got) != "second" {
		t.Errorf("photo (2).jpg = %q", got)
	}
}

func TestRunSkipsOrphanBlob(t *testing.T) {
	ts := time.Date(2023, 5, 1, 12, 0, 0, 0, time.Local).UnixMilli()

	// Blob 99/9999 has no metadata row and no filter is active: that is an
	// error for that attachment, but the rest of the batch still completes.
	b := newTestBackup(t, backupdbtest.FullSchema,
		map[attachment.Key][]byte{
			{RowID: 99, UniqueID: 9999}: []byte("orphan"),
			{RowID: 1, UniqueID: 1000}:  []byte("good"),
		},
		`INSERT INTO recipient (_id, system_joined_name) VALUES (1, 'Alice')`,
		`INSERT INTO thread (_id, recipient_id) VALUES (10, 1)`,
		fmt.Sprintf(`INSERT INTO message (_id, date_received, type, thread_id)
			VALUES (100, %d, %d, 10)`, ts, typeInbox),
		`INSERT INTO part (_id, mid, unique_id, ct, file_name, display_order)
			VALUES (1, 100, 1000, 'image/jpeg', 'good.jpg', 0)`,
	)

	stats := b.exporter(backupdb.Filter{}).Run(b.store)

	if stats.Saved != 1 || stats.Skipped != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(stats.Errors) != 1 {
		t.Fatalf("errors = %v", stats.Errors)
	}
	if _, err := os.Stat(filepath.Join(b.out, "Alice", "received", "good.jpg")); err != nil {
		t.Error("good attachment missing:", err)
	}
}

func TestRunReleasesBlobs(t *testing.T) {
	ts := time.Date(2023, 5, 1, 12, 0, 0, 0, time.Local).UnixMilli()

	b := newTestBackup(t, backupdbtest.FullSchema,
		map[attachment.Key][]byte{
			{RowID: 1, UniqueID: 1000}: []byte("payload"),
		},
		`INSERT INTO recipient (_id, system_joined_name) VALUES (1, 'Alice')`,
		`INSERT INTO thread (_id, recipient_id) VALUES (10, 1)`,
		fmt.Sprintf(`INSERT INTO message (_id, date_received, type, thread_id)
			VALUES (100, %d, %d, 10)`, ts, typeInbox),
		`INSERT INTO part (_id, mid, unique_id, ct, file_name, display_order)
			VALUES (1, 100, 1000, 'image/jpeg', 'p.jpg', 0)`,
	)

	b.exporter(backupdb.Filter{}).Run(b.store)

	for _, blob := range b.store.Blobs() {
		if _, err := blob.Data(); err == nil {
			t.Errorf("blob %s not released after export", blob.Key)
		}
	}
}

func TestPrepareBaseDir(t *testing.T) {
	t.Run("creates missing directory", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "export")
		e := &Exporter{BaseDir: out, Logger: discardLogger()}
		if err := e.PrepareBaseDir(false); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(out); err != nil {
			t.Error(err)
		}
	})

	t.Run("refuses non-empty directory", func(t *testing.T) {
		out := t.TempDir()
		touch(t, out, "existing.txt")
		e := &Exporter{BaseDir: out, Logger: discardLogger()}
		if err := e.PrepareBaseDir(false); err == nil {
			t.Error("expected error for non-empty directory")
		}
		if err := e.PrepareBaseDir(true); err != nil {
			t.Errorf("overwrite should allow it: %v", err)
		}
	})

	t.Run("empty directory is fine", func(t *testing.T) {
		e := &Exporter{BaseDir: t.TempDir(), Logger: discardLogger()}
		if err := e.PrepareBaseDir(false); err != nil {
			t.Error(err)
		}
	})
}
