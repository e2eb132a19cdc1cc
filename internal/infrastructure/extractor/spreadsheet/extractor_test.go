package spreadsheet

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/healthqa/testcase-search/internal/core/domain"
)

type storageFake struct {
	data []byte
	err  error
}

func (f *storageFake) Save(context.Context, string, io.Reader) error { return nil }

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func buildWorkbook(t *testing.T, headers []string, rows [][]string) []byte {
	t.Helper()
	file := excelize.NewFile()
	sheet := file.GetSheetName(0)

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, h); err != nil {
			t.Fatalf("set header: %v", err)
		}
	}
	for rowIdx, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err := file.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestExtractMapsColumnsByHeader(t *testing.T) {
	data := buildWorkbook(t,
		[]string{"Test Case ID", "Summary", "Feature", "Test Steps", "Expected Result", "Severity"},
		[][]string{
			{"TC-001", "Patient login with OTP", "auth", "1. Open login\n2. Enter OTP", "Dashboard shown", "high"},
			{"TC-002", "Export lab results", "reports", "1. Open report", "PDF downloaded", "medium"},
		},
	)

	ex := NewExtractor(&storageFake{data: data})
	got, err := ex.Extract(context.Background(), &domain.Workbook{ID: "wb-1", StoragePath: "key"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(got))
	}
	tc := got[0]
	if tc.CaseID != "TC-001" || tc.Title != "Patient login with OTP" || tc.Module != "auth" {
		t.Fatalf("unexpected case: %+v", tc)
	}
	if tc.ExpectedResults != "Dashboard shown" || tc.Priority != "high" {
		t.Fatalf("unexpected case fields: %+v", tc)
	}
	if tc.WorkbookID != "wb-1" || tc.ID == "" {
		t.Fatalf("case must carry workbook id and a generated id: %+v", tc)
	}
}

func TestExtractSkipsBlankRowsAndGeneratesMissingIDs(t *testing.T) {
	data := buildWorkbook(t,
		[]string{"Title", "Module"},
		[][]string{
			{"Patient login with OTP", "auth"},
			{"", ""},
			{"Export lab results", "reports"},
		},
	)

	ex := NewExtractor(&storageFake{data: data})
	got, err := ex.Extract(context.Background(), &domain.Workbook{ID: "wb-1"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected blank row skipped, got %d cases", len(got))
	}
	if got[0].CaseID == "" || got[1].CaseID == "" {
		t.Fatalf("missing case ids must be generated: %+v", got)
	}
	if got[0].CaseID == got[1].CaseID {
		t.Fatalf("generated case ids must differ: %s", got[0].CaseID)
	}
}

func TestExtractRejectsNonXLSX(t *testing.T) {
	ex := NewExtractor(&storageFake{data: []byte("not a zip")})
	_, err := ex.Extract(context.Background(), &domain.Workbook{ID: "wb-1"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExtractStorageFailure(t *testing.T) {
	ex := NewExtractor(&storageFake{err: errors.New("missing blob")})
	_, err := ex.Extract(context.Background(), &domain.Workbook{ID: "wb-1"})
	if err == nil {
		t.Fatalf("expected error")
	}
}
