package mediaexport

import (
	"log/slog"
	"strconv"
	"time"

	"sigmedia/internal/mimeext"
)

// timestampPattern formats the message timestamp into the synthesized
// filename stem, seconds precision, local time.
const timestampPattern = "signal-2006-01-02-150405"

// synthesizeFilename builds a filename for an attachment whose stored name
// is missing or unusable. The display order is appended only when non-zero
// (it disambiguates multiple attachments sharing one message timestamp).
// Unknown content types fall back to the "attach" extension with a warning.
func synthesizeFilename(timestampMillis, order int64, contentType string, logger *slog.Logger) string {
	stem := time.UnixMilli(timestampMillis).Local().Format(timestampPattern)
	if order != 0 {
		stem += "_" + strconv.FormatInt(order, 10)
	}

	ext := mimeext.Extension(contentType)
	if ext == "" {
		ext = "attach"
		logger.Warn("content type not recognized, using fallback extension",
			"content_type", contentType, "filename", stem+".attach")
	}
	return stem + "." + ext
}
