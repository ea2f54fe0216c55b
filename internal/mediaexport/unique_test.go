package mediaexport

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
		t.Fatalf("touch %s: %v", name, err)
	}
}

func TestUniqueFilename(t *testing.T) {
	t.Run("no collision returns candidate", func(t *testing.T) {
		dir := t.TempDir()
		got, err := uniqueFilename(dir, "photo.jpg")
		if err != nil {
			t.Fatal(err)
		}
		if got != "photo.jpg" {
			t.Errorf("got %q, want %q", got, "photo.jpg")
		}
	})

	t.Run("collision appends counter", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "photo.jpg")
		got, err := uniqueFilename(dir, "photo.jpg")
		if err != nil {
			t.Fatal(err)
		}
		if got != "photo (2).jpg" {
			t.Errorf("got %q, want %q", got, "photo (2).jpg")
		}
	})

	t.Run("existing counter file advances to next", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "photo.jpg")
		touch(t, dir, "photo (2).jpg")
		got, err := uniqueFilename(dir, "photo.jpg")
		if err != nil {
			t.Fatal(err)
		}
		if got != "photo (3).jpg" {
			t.Errorf("got %q, want %q", got, "photo (3).jpg")
		}
	})

	t.Run("candidate with counter resumes counting", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "photo (2).jpg")
		got, err := uniqueFilename(dir, "photo (2).jpg")
		if err != nil {
			t.Fatal(err)
		}
		if got != "photo (3).jpg" {
			t.Errorf("got %q, want %q", got, "photo (3).jpg")
		}
	})

	t.Run("directories collide too", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, "photo.jpg"), 0755); err != nil {
			t.Fatal(err)
		}
		got, err := uniqueFilename(dir, "photo.jpg")
		if err != nil {
			t.Fatal(err)
		}
		if got != "photo (2).jpg" {
			t.Errorf("got %q, want %q", got, "photo (2).jpg")
		}
	})

	t.Run("no extension", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "README")
		got, err := uniqueFilename(dir, "README")
		if err != nil {
			t.Fatal(err)
		}
		if got != "README (2)" {
			t.Errorf("got %q, want %q", got, "README (2)")
		}
	})
}

func TestUniqueFilenameSequence(t *testing.T) {
	// N identical candidates against the same directory yield N distinct
	// names once each result is materialized.
	dir := t.TempDir()
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		name, err := uniqueFilename(dir, "clip.mp4")
		if err != nil {
			t.Fatal(err)
		}
		if seen[name] {
			t.Fatalf("duplicate name %q on iteration %d", name, i)
		}
		seen[name] = true
		touch(t, dir, name)
	}
}
