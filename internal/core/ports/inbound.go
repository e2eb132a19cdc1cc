package ports

import (
	"context"
	"io"

	"github.com/healthqa/testcase-search/internal/core/domain"
)

// WorkbookIngestor is the inbound contract for workbook upload orchestration.
type WorkbookIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Workbook, error)
}

// WorkbookReader is the inbound read model for workbook metadata/state.
type WorkbookReader interface {
	GetWorkbook(ctx context.Context, id string) (*domain.Workbook, error)
}

// WorkbookProcessor is the inbound contract for asynchronous workbook
// processing.
type WorkbookProcessor interface {
	ProcessByID(ctx context.Context, workbookID string) error
}

// CaseSearcher is the inbound contract for the three search modes.
type CaseSearcher interface {
	SearchLexical(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.ScoredCase, error)
	SearchVector(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.ScoredCase, error)
	SearchHybrid(ctx context.Context, query string, cfg domain.FusionConfig, filter domain.SearchFilter) (*domain.HybridResult, error)
}

// CaseCurator is the inbound contract for dedup+summarize and test-case
// drafting on top of hybrid retrieval.
type CaseCurator interface {
	DedupeAndSummarize(ctx context.Context, query string, limit int, threshold float64, filter domain.SearchFilter) (*domain.CurationResult, error)
	DraftTestCase(ctx context.Context, requirement, module string, limit int) (*domain.DraftResult, error)
}
