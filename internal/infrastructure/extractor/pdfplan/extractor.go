// Package pdfplan extracts test cases from PDF test-plan exports. PDF text
// carries no table structure, so extraction is anchored on case-id markers
// (TC-001 style): each marker opens a case and owns the text up to the next
// marker.
package pdfplan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/healthqa/testcase-search/internal/core/domain"
	"github.com/healthqa/testcase-search/internal/core/ports"
)

var caseMarker = regexp.MustCompile(`TC[-_]?\d+`)

const maxTitleRunes = 120

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, wb *domain.Workbook) ([]domain.TestCase, error) {
	reader, err := e.storage.Open(ctx, wb.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source workbook: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source workbook: %w", err)
	}

	doc, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse pdf", err)
	}

	textReader, err := doc.GetPlainText()
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract pdf text", err)
	}
	text, err := io.ReadAll(textReader)
	if err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	return parsePlanText(string(text), wb.ID), nil
}

func parsePlanText(text, workbookID string) []domain.TestCase {
	markers := caseMarker.FindAllStringIndex(text, -1)
	if len(markers) == 0 {
		return nil
	}

	now := time.Now().UTC()
	out := make([]domain.TestCase, 0, len(markers))
	for i, loc := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}

		caseID := text[loc[0]:loc[1]]
		body := strings.TrimSpace(strings.TrimLeft(text[loc[1]:end], ":.-– \t"))
		title, description := splitTitle(body)
		if title == "" {
			continue
		}

		out = append(out, domain.TestCase{
			ID:          uuid.NewString(),
			WorkbookID:  workbookID,
			CaseID:      caseID,
			Title:       title,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return out
}

// splitTitle takes the first line as the title, falling back to a prefix cut
// when the PDF text came through without line breaks.
func splitTitle(body string) (string, string) {
	if body == "" {
		return "", ""
	}

	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		title := strings.TrimSpace(body[:idx])
		rest := strings.TrimSpace(body[idx+1:])
		if title != "" {
			return title, rest
		}
		return splitTitle(rest)
	}

	runes := []rune(body)
	if len(runes) <= maxTitleRunes {
		return strings.TrimSpace(body), ""
	}

	cut := maxTitleRunes
	for i := maxTitleRunes - 1; i > 0; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])), strings.TrimSpace(string(runes[cut:]))
}
