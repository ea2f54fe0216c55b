// Package attachment provides access to the binary attachment blobs of a
// decrypted Signal backup. Each blob lives in its own file named
// Attachment_<rowid>_<uniqueid>.bin next to the metadata database, as laid
// out by the backup decryptor.
package attachment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Key identifies one attachment within a backup. The pair is unique across
// the attachment set.
type Key struct {
	RowID    int64
	UniqueID int64
}

func (k Key) String() string {
	return fmt.Sprintf("rowid=%d uniqueid=%d", k.RowID, k.UniqueID)
}

// Blob is one attachment's binary content. The content is loaded on demand
// and held until Release is called; a released blob cannot be loaded again.
// Processing one blob at a time keeps peak memory bounded by the largest
// single attachment.
type Blob struct {
	Key
	Size int64

	path     string
	data     []byte
	released bool
}

// Data returns the blob's content, reading it from disk on first use.
func (b *Blob) Data() ([]byte, error) {
	if b.released {
		return nil, fmt.Errorf("attachment %s: already released", b.Key)
	}
	if b.data == nil {
		data, err := os.ReadFile(b.path)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", b.Key, err)
		}
		b.data = data
	}
	return b.data, nil
}

// Release frees the in-memory content. It is safe to call more than once,
// but the blob cannot be loaded again afterwards.
func (b *Blob) Release() {
	b.data = nil
	b.released = true
}

// Store is the iterable set of attachment blobs discovered in a backup
// directory.
type Store struct {
	blobs []*Blob
}

// ScanDir discovers attachment blob files under dir. Files that do not match
// the Attachment_<rowid>_<uniqueid>.bin pattern are ignored. The result is
// ordered by (rowid, uniqueid) so repeated runs process attachments in the
// same sequence.
func ScanDir(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan backup dir: %w", err)
	}

	var blobs []*Blob
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := parseBlobName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		blobs = append(blobs, &Blob{
			Key:  key,
			Size: info.Size(),
			path: filepath.Join(dir, e.Name()),
		})
	}

	sort.Slice(blobs, func(i, j int) bool {
		if blobs[i].RowID != blobs[j].RowID {
			return blobs[i].RowID < blobs[j].RowID
		}
		return blobs[i].UniqueID < blobs[j].UniqueID
	})

	return &Store{blobs: blobs}, nil
}

// parseBlobName extracts the key from an Attachment_<rowid>_<uniqueid>.bin
// file name.
func parseBlobName(name string) (Key, bool) {
	rest, ok := strings.CutPrefix(name, "Attachment_")
	if !ok {
		return Key{}, false
	}
	rest, ok = strings.CutSuffix(rest, ".bin")
	if !ok {
		return Key{}, false
	}
	rowStr, uniqueStr, ok := strings.Cut(rest, "_")
	if !ok {
		return Key{}, false
	}
	rowID, err := strconv.ParseInt(rowStr, 10, 64)
	if err != nil {
		return Key{}, false
	}
	uniqueID, err := strconv.ParseInt(uniqueStr, 10, 64)
	if err != nil {
		return Key{}, false
	}
	return Key{RowID: rowID, UniqueID: uniqueID}, true
}

// Len returns the number of attachments in the set.
func (s *Store) Len() int { return len(s.blobs) }

// Blobs returns the attachments in processing order.
func (s *Store) Blobs() []*Blob { return s.blobs }

// TotalSize returns the summed on-disk size of all attachments.
func (s *Store) TotalSize() int64 {
	var total int64
	for _, b := range s.blobs {
		total += b.Size
	}
	return total
}
