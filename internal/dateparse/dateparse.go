// Package dateparse converts user-supplied date strings into milliseconds
// since the Unix epoch. Inputs are interpreted in local time, matching the
// timestamps Signal stores for received messages.
package dateparse

import (
	"fmt"
	"strconv"
	"time"
)

// Precision reports how fine-grained the parsed input was. Coarse inputs
// need their end-of-range widened so the last second (or day) is inclusive.
type Precision int

const (
	// PrecisionMilli means the input carried sub-second detail or was a raw
	// epoch-milliseconds number. No widening applies.
	PrecisionMilli Precision = iota
	// PrecisionSecond means the input named an exact second ("2023-01-01 13:37:00").
	PrecisionSecond
	// PrecisionDay means the input named only a calendar day ("2023-01-01").
	PrecisionDay
)

var layouts = []struct {
	layout string
	prec   Precision
}{
	{"2006-01-02 15:04:05.000", PrecisionMilli},
	{"2006-01-02T15:04:05.000", PrecisionMilli},
	{"2006-01-02 15:04:05", PrecisionSecond},
	{"2006-01-02T15:04:05", PrecisionSecond},
	{"2006-01-02 15:04", PrecisionSecond},
	{"2006-01-02", PrecisionDay},
	{"2006/01/02", PrecisionDay},
}

// Parse returns the instant named by s as epoch milliseconds, along with the
// precision of the input. A bare integer is accepted as epoch milliseconds
// directly. Unparseable input returns an error.
func Parse(s string) (int64, Precision, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, PrecisionMilli, nil
	}
	for _, l := range layouts {
		t, err := time.ParseInLocation(l.layout, s, time.Local)
		if err != nil {
			continue
		}
		return t.UnixMilli(), l.prec, nil
	}
	return 0, PrecisionMilli, fmt.Errorf("unrecognized date %q", s)
}

// EndOfRange converts a parsed end bound into an inclusive upper bound.
// Day-precision input covers its whole day; second-precision input covers
// its whole second. Millisecond input is returned unchanged.
func EndOfRange(ms int64, prec Precision) int64 {
	switch prec {
	case PrecisionDay:
		return ms + 24*time.Hour.Milliseconds() - 1
	case PrecisionSecond:
		return ms + 999
	default:
		return ms
	}
}
