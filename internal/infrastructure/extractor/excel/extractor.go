package excel

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/manual-rag/internal/core/domain"
)

// Extractor handles .xlsx sources, mapping each sheet to one page in sheet
// order (0-based).
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) ExtractPages(ctx context.Context, path string) ([]domain.Page, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	out := make([]domain.Page, 0, len(sheets))
	for idx, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}

		lines := make([]string, 0, len(rows))
		for _, cells := range rows {
			line := strings.TrimSpace(strings.Join(cells, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		out = append(out, domain.Page{Number: idx, Text: strings.Join(lines, "\n")})
	}
	return out, nil
}
