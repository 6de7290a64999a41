package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("content"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestListReturnsOnlySupportedExtensionsSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-manual.pdf")
	writeFile(t, dir, "a-notes.txt")
	writeFile(t, dir, "photo.jpg")
	writeFile(t, dir, "UPPER.PDF")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	store, err := NewDirStore(dir, []string{".pdf", ".txt"})
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}

	paths, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "UPPER.PDF"),
		filepath.Join(dir, "a-notes.txt"),
		filepath.Join(dir, "b-manual.pdf"),
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestNewDirStoreCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "documents")

	store, err := NewDirStore(dir, []string{".pdf"})
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected dir to exist: %v", err)
	}

	paths, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected empty list, got %v", paths)
	}
}
