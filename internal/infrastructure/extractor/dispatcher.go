package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/healthqa/testcase-search/internal/core/domain"
	"github.com/healthqa/testcase-search/internal/core/ports"
)

// Dispatcher routes a workbook to the extractor for its format. Extension
// wins over mime type: browsers are sloppy with xlsx mime values.
type Dispatcher struct {
	xlsx ports.WorkbookExtractor
	pdf  ports.WorkbookExtractor
}

func NewDispatcher(xlsx, pdf ports.WorkbookExtractor) *Dispatcher {
	return &Dispatcher{xlsx: xlsx, pdf: pdf}
}

func (d *Dispatcher) Extract(ctx context.Context, wb *domain.Workbook) ([]domain.TestCase, error) {
	switch strings.ToLower(filepath.Ext(wb.Filename)) {
	case ".xlsx", ".xlsm":
		return d.xlsx.Extract(ctx, wb)
	case ".pdf":
		return d.pdf.Extract(ctx, wb)
	}

	switch {
	case strings.Contains(wb.MimeType, "spreadsheet"), strings.Contains(wb.MimeType, "excel"):
		return d.xlsx.Extract(ctx, wb)
	case strings.Contains(wb.MimeType, "pdf"):
		return d.pdf.Extract(ctx, wb)
	}

	return nil, domain.WrapError(domain.ErrInvalidInput, "extract workbook",
		fmt.Errorf("unsupported format: %s (%s)", wb.Filename, wb.MimeType))
}
