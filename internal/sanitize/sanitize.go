// Package sanitize converts arbitrary strings into filesystem-safe names.
package sanitize

import (
	"strings"
)

// Windows reserves these device names regardless of extension; a file named
// "COM1" or "COM1.jpg" cannot be created there.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Filename removes or replaces characters that are invalid in filenames.
// It returns the empty string for inputs that cannot be made safe, such as
// reserved device names or names that reduce to nothing; callers are expected
// to fall back to a synthesized name in that case.
func Filename(s string) string {
	var result []rune
	for _, r := range s {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r', '\t':
			result = append(result, '_')
		case 0:
			// drop NUL outright
		default:
			result = append(result, r)
		}
	}

	name := strings.Trim(string(result), " .")
	if name == "" {
		return ""
	}

	stem := name
	if i := strings.IndexByte(name, '.'); i >= 0 {
		stem = name[:i]
	}
	if reservedNames[strings.ToUpper(stem)] {
		return ""
	}
	return name
}
