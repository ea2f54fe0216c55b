package mediaexport

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// writeBlob writes data to path and stamps the file's modification time with
// the logical message timestamp. The file handle is closed before the
// timestamp is set; a handle still open during Chtimes would have the
// filesystem bump the mtime again on close. A Chtimes failure is warn-only.
func writeBlob(path string, data []byte, timestampMillis int64, logger *slog.Logger) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("open for writing: %w", err)
	}

	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(path)
		return fmt.Errorf("write: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(path)
		return fmt.Errorf("close: %w", closeErr)
	}

	mtime := time.Unix(timestampMillis/1000, 0)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		logger.Warn("failed to set file timestamp", "path", path, "error", err)
	}
	return nil
}
