package domain

import "time"

type WorkbookStatus string

const (
	StatusUploaded   WorkbookStatus = "uploaded"
	StatusProcessing WorkbookStatus = "processing"
	StatusReady      WorkbookStatus = "ready"
	StatusFailed     WorkbookStatus = "failed"
)

// Workbook is one uploaded test-case file (xlsx or pdf) tracked through the
// asynchronous ingestion pipeline.
type Workbook struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	CaseCount   int            `json:"case_count"`
	Status      WorkbookStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TestCase is the canonical test-case record. Backend adapters map their
// payloads onto this field set; core logic never branches on alternative
// field names.
type TestCase struct {
	ID              string    `json:"id"`
	WorkbookID      string    `json:"workbook_id,omitempty"`
	CaseID          string    `json:"case_id"`
	Title           string    `json:"title"`
	Module          string    `json:"module,omitempty"`
	Description     string    `json:"description,omitempty"`
	Steps           string    `json:"steps,omitempty"`
	ExpectedResults string    `json:"expected_results,omitempty"`
	Priority        string    `json:"priority,omitempty"`
	Risk            string    `json:"risk,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// EmbeddingText builds the single document string a test case is embedded
// and lexically indexed under.
func (tc TestCase) EmbeddingText() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{tc.CaseID, tc.Title, tc.Module, tc.Description, tc.Steps, tc.ExpectedResults} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}

type SearchFilter struct {
	Module   string `json:"module,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// Matches reports whether a test case passes the field-equality post-filter.
// Empty filter fields match everything.
func (f SearchFilter) Matches(tc TestCase) bool {
	if f.Module != "" && f.Module != tc.Module {
		return false
	}
	if f.Priority != "" && f.Priority != tc.Priority {
		return false
	}
	return true
}
