package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirStore lists ingestible files from a local documents directory.
// Only files whose extension is in the supported set are returned.
type DirStore struct {
	basePath   string
	extensions map[string]struct{}
}

func NewDirStore(basePath string, extensions []string) (*DirStore, error) {
	if basePath == "" {
		basePath = "./data/documents"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create documents dir: %w", err)
	}

	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &DirStore{basePath: basePath, extensions: exts}, nil
}

func (s *DirStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}

	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := s.extensions[ext]; !ok {
			continue
		}
		out = append(out, filepath.Join(s.basePath, entry.Name()))
	}
	sort.Strings(out)
	return out, nil
}
