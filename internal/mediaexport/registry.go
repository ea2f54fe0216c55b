// Package mediaexport writes the attachments of a decrypted Signal backup to
// disk as individual files, organized per conversation when the metadata
// database supports it.
package mediaexport

import (
	"fmt"
)

// Registry maps thread ids to the conversation directory names chosen for
// them during one export run. Every thread keeps the same directory for the
// whole run even when its display name changes mid-backup, and no two
// threads share a directory. The registry is owned by the caller and
// discarded when the run ends.
type Registry struct {
	dirByThread map[int64]string
	threadByDir map[string]int64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		dirByThread: make(map[int64]string),
		threadByDir: make(map[string]int64),
	}
}

// DirName returns the directory name for the given thread, registering one
// on first sight. displayName must already be filesystem-safe; when it is
// empty the thread falls back to "Contact <id>". A name already claimed by a
// different thread is disambiguated by appending "(2)" until it is free.
func (r *Registry) DirName(threadID int64, displayName string) string {
	if dir, ok := r.dirByThread[threadID]; ok {
		return dir
	}

	name := displayName
	if name == "" {
		name = fmt.Sprintf("Contact %d", threadID)
	}
	for {
		if _, taken := r.threadByDir[name]; !taken {
			break
		}
		name += "(2)"
	}

	r.dirByThread[threadID] = name
	r.threadByDir[name] = threadID
	return name
}

// Len returns the number of conversations seen so far.
func (r *Registry) Len() int {
	return len(r.dirByThread)
}
