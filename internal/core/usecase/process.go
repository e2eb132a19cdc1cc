package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/healthqa/testcase-search/internal/core/domain"
	"github.com/healthqa/testcase-search/internal/core/ports"
)

type ProcessWorkbookUseCase struct {
	repo      ports.CaseRepository
	extractor ports.WorkbookExtractor
	embedder  ports.Embedder
	index     ports.CaseIndex
}

func NewProcessWorkbookUseCase(
	repo ports.CaseRepository,
	extractor ports.WorkbookExtractor,
	embedder ports.Embedder,
	index ports.CaseIndex,
) *ProcessWorkbookUseCase {
	return &ProcessWorkbookUseCase{
		repo:      repo,
		extractor: extractor,
		embedder:  embedder,
		index:     index,
	}
}

// ProcessByID runs the extraction pipeline for one workbook: parse the stored
// file into canonical cases, replace the workbook's rows, embed each case
// document, and index the batch. Any step failure lands the workbook in
// status "failed" with the error message recorded.
func (uc *ProcessWorkbookUseCase) ProcessByID(ctx context.Context, workbookID string) error {
	if err := uc.markStatus(ctx, workbookID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, workbookID); err != nil {
		if failErr := uc.markStatus(ctx, workbookID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, workbookID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessWorkbookUseCase) processPipeline(ctx context.Context, workbookID string) error {
	wb, err := uc.repo.GetWorkbook(ctx, workbookID)
	if err != nil {
		return fmt.Errorf("fetch workbook by id: %w", err)
	}

	cases, err := uc.extract(ctx, wb)
	if err != nil {
		return err
	}

	if err := uc.repo.ReplaceWorkbookCases(ctx, wb.ID, cases); err != nil {
		return fmt.Errorf("replace workbook cases: %w", err)
	}

	vectors, err := uc.embed(ctx, cases)
	if err != nil {
		return err
	}

	if err := uc.index.IndexCases(ctx, cases, vectors); err != nil {
		return fmt.Errorf("index cases: %w", err)
	}

	return nil
}

func (uc *ProcessWorkbookUseCase) extract(ctx context.Context, wb *domain.Workbook) ([]domain.TestCase, error) {
	cases, err := uc.extractor.Extract(ctx, wb)
	if err != nil {
		return nil, fmt.Errorf("extract test cases: %w", err)
	}
	if len(cases) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract test cases", errors.New("workbook contains no test cases"))
	}
	return cases, nil
}

func (uc *ProcessWorkbookUseCase) embed(ctx context.Context, cases []domain.TestCase) ([][]float32, error) {
	texts := make([]string, len(cases))
	for i, tc := range cases {
		texts[i] = tc.EmbeddingText()
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, domain.WrapError(domain.ErrProviderUnavailable, "embed cases", err)
	}
	if len(vectors) != len(cases) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed cases",
			fmt.Errorf("vectors/cases mismatch: %d/%d", len(vectors), len(cases)),
		)
	}
	return vectors, nil
}

func (uc *ProcessWorkbookUseCase) markStatus(ctx context.Context, workbookID string, status domain.WorkbookStatus, errMessage string) error {
	return uc.repo.UpdateWorkbookStatus(ctx, workbookID, status, errMessage)
}
