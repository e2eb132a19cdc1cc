package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/healthqa/testcase-search/internal/core/domain"
	"github.com/healthqa/testcase-search/internal/core/ports"
)

// Title similarity at or above this Jaccard score marks two cases as
// duplicates unless the request overrides the threshold.
const defaultDedupThreshold = 0.6

type CurateUseCase struct {
	searcher  ports.CaseSearcher
	generator ports.Generator
}

func NewCurateUseCase(searcher ports.CaseSearcher, generator ports.Generator) *CurateUseCase {
	return &CurateUseCase{
		searcher:  searcher,
		generator: generator,
	}
}

// fusionConfigForLimit applies a caller-requested result count to the default
// fusion config. The candidate pool grows with the limit, otherwise a limit
// above the default pool would fail validation the caller never opted into.
func fusionConfigForLimit(limit int) domain.FusionConfig {
	cfg := domain.DefaultFusionConfig()
	if limit > 0 {
		cfg.Limit = limit
		if limit > cfg.TopK {
			cfg.TopK = limit
		}
	}
	return cfg
}

// DedupeAndSummarize retrieves hybrid results for the query, collapses
// near-duplicate titles, and asks the LLM for a coverage summary of the kept
// cases. Summarization failure is not recovered: the caller asked for a
// summary, not a search.
func (uc *CurateUseCase) DedupeAndSummarize(
	ctx context.Context,
	query string,
	limit int,
	threshold float64,
	filter domain.SearchFilter,
) (*domain.CurationResult, error) {
	if threshold == 0 {
		threshold = defaultDedupThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "dedupe",
			fmt.Errorf("threshold must be in [0,1], got %v", threshold))
	}

	hybrid, err := uc.searcher.SearchHybrid(ctx, query, fusionConfigForLimit(limit), filter)
	if err != nil {
		return nil, err
	}

	deduped := deduplicateByTitle(hybrid.Items, threshold)

	kept := make([]domain.TestCase, len(deduped.Kept))
	for i, r := range deduped.Kept {
		kept[i] = r.Case
	}

	summary := ""
	if len(kept) > 0 {
		summary, err = uc.generator.Summarize(ctx, query, kept)
		if err != nil {
			return nil, domain.WrapError(domain.ErrProviderUnavailable, "summarize cases", err)
		}
	}

	return &domain.CurationResult{
		Kept:        deduped.Kept,
		Suppressed:  deduped.Suppressed,
		Stats:       deduped.Stats,
		Summary:     summary,
		Diagnostics: hybrid.Diagnostics,
	}, nil
}

// DraftTestCase retrieves the cases most related to the requirement and asks
// the LLM to draft a new case in the same register, returning the draft with
// its retrieval sources so a reviewer can judge the grounding.
func (uc *CurateUseCase) DraftTestCase(
	ctx context.Context,
	requirement, module string,
	limit int,
) (*domain.DraftResult, error) {
	if strings.TrimSpace(requirement) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "draft test case", errors.New("requirement is required"))
	}

	filter := domain.SearchFilter{Module: module}

	hybrid, err := uc.searcher.SearchHybrid(ctx, requirement, fusionConfigForLimit(limit), filter)
	if err != nil {
		return nil, err
	}

	related := make([]domain.TestCase, len(hybrid.Items))
	for i, r := range hybrid.Items {
		related[i] = r.Case
	}

	draft, err := uc.generator.DraftTestCase(ctx, requirement, module, related)
	if err != nil {
		return nil, domain.WrapError(domain.ErrProviderUnavailable, "draft test case", err)
	}

	return &domain.DraftResult{
		Draft:   *draft,
		Sources: hybrid.Items,
	}, nil
}
