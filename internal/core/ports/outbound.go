package ports

import (
	"context"
	"io"

	"github.com/healthqa/testcase-search/internal/core/domain"
)

// CaseRepository persists workbook state and the canonical test-case rows
// extracted from it.
type CaseRepository interface {
	CreateWorkbook(ctx context.Context, wb *domain.Workbook) error
	GetWorkbook(ctx context.Context, id string) (*domain.Workbook, error)
	UpdateWorkbookStatus(ctx context.Context, id string, status domain.WorkbookStatus, errMessage string) error
	ReplaceWorkbookCases(ctx context.Context, workbookID string, cases []domain.TestCase) error
	ListWorkbookCases(ctx context.Context, workbookID string) ([]domain.TestCase, error)
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes workbook ingestion events.
type MessageQueue interface {
	PublishWorkbookIngested(ctx context.Context, workbookID string) error
	SubscribeWorkbookIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// WorkbookExtractor parses a stored workbook into canonical test cases.
type WorkbookExtractor interface {
	Extract(ctx context.Context, wb *domain.Workbook) ([]domain.TestCase, error)
}

// Embedder builds vectors for case documents and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CaseIndex is the search backend: it indexes each case once and serves the
// two retrieval primitives. Field-equality filters are applied by the core
// after retrieval, not pushed down.
type CaseIndex interface {
	IndexCases(ctx context.Context, cases []domain.TestCase, vectors [][]float32) error
	SearchVector(ctx context.Context, queryVector []float32, limit int) ([]domain.ScoredCase, error)
	SearchLexical(ctx context.Context, query string, limit int) ([]domain.ScoredCase, error)
}

// Reranker reorders the fused top-K with an LLM. A failure must be
// recovered by the caller with the fusion-only order.
type Reranker interface {
	Rerank(ctx context.Context, query string, items []domain.FusionResult, topK int) ([]domain.FusionResult, error)
}

// Generator produces LLM output grounded on retrieved cases.
type Generator interface {
	Summarize(ctx context.Context, topic string, cases []domain.TestCase) (string, error)
	DraftTestCase(ctx context.Context, requirement, module string, related []domain.TestCase) (*domain.TestCase, error)
}
