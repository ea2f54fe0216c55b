package mediaexport

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// trailingCounter matches a stem that already ends in a parenthesized
// counter, e.g. "photo (2)". Group 1 is the counter part, group 2 the number.
var trailingCounter = regexp.MustCompile(`^(.*)( \(([0-9]+)\))$`)

// uniqueFilename returns a name for candidate that does not collide with any
// existing entry (file or directory) in dir. An existing " (N)" counter in
// the stem resumes at N+1; otherwise counting starts at 2. The result is
// deterministic for a given directory snapshot; the export is single
// threaded, so there is no contention to retry against.
func uniqueFilename(dir, candidate string) (string, error) {
	exists, err := entryExists(filepath.Join(dir, candidate))
	if err != nil {
		return "", err
	}
	if !exists {
		return candidate, nil
	}

	ext := filepath.Ext(candidate)
	stem := candidate[:len(candidate)-len(ext)]
	counter := 2
	if m := trailingCounter.FindStringSubmatch(stem); m != nil {
		if n, err := strconv.Atoi(m[3]); err == nil {
			counter = n + 1
			stem = m[1]
		}
	}

	for {
		name := fmt.Sprintf("%s (%d)%s", stem, counter, ext)
		exists, err := entryExists(filepath.Join(dir, name))
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
		counter++
	}
}

func entryExists(path string) (bool, error) {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}
