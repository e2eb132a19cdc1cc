// Package spreadsheet extracts test cases from xlsx workbooks. The first row
// is the header; column meaning is resolved by header name, not position, so
// teams can keep their own column order.
package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/healthqa/testcase-search/internal/core/domain"
	"github.com/healthqa/testcase-search/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

// columnFor maps a header cell onto a canonical test-case field. Unknown
// headers are ignored.
func columnFor(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.Join(strings.Fields(h), " ")
	switch h {
	case "id", "case id", "case_id", "test case id", "tc id":
		return "case_id"
	case "title", "name", "test case", "summary", "scenario":
		return "title"
	case "module", "feature", "area", "component":
		return "module"
	case "description", "desc", "precondition", "preconditions":
		return "description"
	case "steps", "test steps", "procedure", "actions":
		return "steps"
	case "expected", "expected result", "expected results", "result":
		return "expected"
	case "priority", "severity":
		return "priority"
	case "risk", "risk level":
		return "risk"
	default:
		return ""
	}
}

func (e *Extractor) Extract(ctx context.Context, wb *domain.Workbook) ([]domain.TestCase, error) {
	reader, err := e.storage.Open(ctx, wb.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source workbook: %w", err)
	}
	defer reader.Close()

	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse xlsx", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse xlsx", errors.New("workbook has no sheets"))
	}

	var out []domain.TestCase
	for _, sheet := range sheets {
		cases, err := e.extractSheet(file, sheet, wb.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, cases...)
	}
	return out, nil
}

func (e *Extractor) extractSheet(file *excelize.File, sheet, workbookID string) ([]domain.TestCase, error) {
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	fieldByCol := make(map[int]string, len(rows[0]))
	for col, header := range rows[0] {
		if field := columnFor(header); field != "" {
			fieldByCol[col] = field
		}
	}
	if len(fieldByCol) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	out := make([]domain.TestCase, 0, len(rows)-1)
	for rowIdx, row := range rows[1:] {
		tc := domain.TestCase{
			ID:         uuid.NewString(),
			WorkbookID: workbookID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		for col, field := range fieldByCol {
			if col >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[col])
			switch field {
			case "case_id":
				tc.CaseID = value
			case "title":
				tc.Title = value
			case "module":
				tc.Module = value
			case "description":
				tc.Description = value
			case "steps":
				tc.Steps = value
			case "expected":
				tc.ExpectedResults = value
			case "priority":
				tc.Priority = value
			case "risk":
				tc.Risk = value
			}
		}

		if tc.Title == "" && tc.CaseID == "" {
			continue
		}
		if tc.CaseID == "" {
			tc.CaseID = fmt.Sprintf("%s-R%d", sheet, rowIdx+2)
		}
		out = append(out, tc)
	}
	return out, nil
}
