package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/manual-rag/internal/core/domain"
	"github.com/kirillkom/manual-rag/internal/core/ports"
)

// Dispatcher routes extraction to a format-specific extractor by file
// extension.
type Dispatcher struct {
	byExt map[string]ports.PageExtractor
}

func NewDispatcher(byExt map[string]ports.PageExtractor) *Dispatcher {
	normalized := make(map[string]ports.PageExtractor, len(byExt))
	for ext, e := range byExt {
		normalized[strings.ToLower(ext)] = e
	}
	return &Dispatcher{byExt: normalized}
}

func (d *Dispatcher) ExtractPages(ctx context.Context, path string) ([]domain.Page, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := d.byExt[ext]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract pages", fmt.Errorf("unsupported file type %q", ext))
	}
	return e.ExtractPages(ctx, path)
}

// Extensions returns the supported extensions sorted, for directory scans.
func (d *Dispatcher) Extensions() []string {
	out := make([]string, 0, len(d.byExt))
	for ext := range d.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
