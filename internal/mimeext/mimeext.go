// Package mimeext maps content types to file extensions.
package mimeext

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Signal content types that the generic mimetype database does not cover,
// or covers with a less useful extension.
var overrides = map[string]string{
	"audio/aac":                   "aac",
	"image/webp":                  "webp",
	"video/3gpp":                  "3gp",
	"application/x-signal-view":   "bin",
	"text/x-signal-plain":         "txt",
	"text/x-signal-story":         "txt",
	"audio/x-scpls":               "pls",
	"application/vnd.android.package-archive": "apk",
}

// Extension returns the extension (without leading dot) for the given
// content type, or the empty string when the type is unknown. Parameters
// after a ';' are ignored.
func Extension(contentType string) string {
	ct := strings.TrimSpace(contentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ct = strings.ToLower(ct)
	if ct == "" {
		return ""
	}

	if ext, ok := overrides[ct]; ok {
		return ext
	}
	if m := mimetype.Lookup(ct); m != nil {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	return ""
}
