package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/healthqa/testcase-search/internal/core/domain"
	"github.com/healthqa/testcase-search/internal/core/ports"
)

// SearchTimeouts bounds each outbound call independently so one slow branch
// cannot hold up failure reporting from the other.
type SearchTimeouts struct {
	Lexical time.Duration
	Embed   time.Duration
	Vector  time.Duration
}

func (t SearchTimeouts) normalize() SearchTimeouts {
	if t.Lexical <= 0 {
		t.Lexical = 10 * time.Second
	}
	if t.Embed <= 0 {
		t.Embed = 15 * time.Second
	}
	if t.Vector <= 0 {
		t.Vector = 10 * time.Second
	}
	return t
}

type SearchUseCase struct {
	embedder ports.Embedder
	index    ports.CaseIndex
	reranker ports.Reranker
	timeouts SearchTimeouts
}

// NewSearchUseCase wires the retrieval collaborators. reranker may be nil;
// hybrid search then ignores FusionConfig.Rerank.
func NewSearchUseCase(
	embedder ports.Embedder,
	index ports.CaseIndex,
	reranker ports.Reranker,
	timeouts SearchTimeouts,
) *SearchUseCase {
	return &SearchUseCase{
		embedder: embedder,
		index:    index,
		reranker: reranker,
		timeouts: timeouts.normalize(),
	}
}

func (uc *SearchUseCase) SearchLexical(
	ctx context.Context,
	query string,
	limit int,
	filter domain.SearchFilter,
) ([]domain.ScoredCase, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	cctx, cancel := context.WithTimeout(ctx, uc.timeouts.Lexical)
	defer cancel()
	hits, err := uc.index.SearchLexical(cctx, query, overfetchLimit(limit))
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendQuery, "lexical search", err)
	}
	return applyPostFilter(hits, filter, limit), nil
}

func (uc *SearchUseCase) SearchVector(
	ctx context.Context,
	query string,
	limit int,
	filter domain.SearchFilter,
) ([]domain.ScoredCase, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	ectx, cancel := context.WithTimeout(ctx, uc.timeouts.Embed)
	defer cancel()
	queryVector, err := uc.embedder.EmbedQuery(ectx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrProviderUnavailable, "embed query", err)
	}

	vctx, cancel := context.WithTimeout(ctx, uc.timeouts.Vector)
	defer cancel()
	hits, err := uc.index.SearchVector(vctx, queryVector, overfetchLimit(limit))
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendQuery, "vector search", err)
	}
	return applyPostFilter(hits, filter, limit), nil
}

// SearchHybrid runs the lexical and vector branches concurrently, merges and
// fuses their candidate pools, and optionally hands the fused top-K to the
// LLM reranker. An embedding failure aborts the whole request unless the
// config opts into lexical-only degradation.
func (uc *SearchUseCase) SearchHybrid(
	ctx context.Context,
	query string,
	cfg domain.FusionConfig,
	filter domain.SearchFilter,
) (*domain.HybridResult, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Each branch over-fetches so post-filters and fusion have enough
	// material; a filtered pool can still come up short when the overfetch
	// factor is small relative to how selective the filter is.
	fetchLimit := cfg.TopK * cfg.Overfetch

	var (
		lexical, vector        []domain.ScoredCase
		lexicalDur, vectorDur  time.Duration
		degradedToLexicalOnly  bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		defer func() { lexicalDur = time.Since(start) }()

		cctx, cancel := context.WithTimeout(gctx, uc.timeouts.Lexical)
		defer cancel()
		hits, err := uc.index.SearchLexical(cctx, query, fetchLimit)
		if err != nil {
			return domain.WrapError(domain.ErrBackendQuery, "lexical search", err)
		}
		lexical = hits
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		defer func() { vectorDur = time.Since(start) }()

		// The embedding call is a strict dependency of this branch only;
		// the lexical branch never waits on it.
		ectx, cancel := context.WithTimeout(gctx, uc.timeouts.Embed)
		defer cancel()
		queryVector, err := uc.embedder.EmbedQuery(ectx, query)
		if err != nil {
			if cfg.DegradeOnEmbedFailure {
				degradedToLexicalOnly = true
				return nil
			}
			return domain.WrapError(domain.ErrProviderUnavailable, "embed query", err)
		}

		vctx, cancel := context.WithTimeout(gctx, uc.timeouts.Vector)
		defer cancel()
		hits, err := uc.index.SearchVector(vctx, queryVector, fetchLimit)
		if err != nil {
			return domain.WrapError(domain.ErrBackendQuery, "vector search", err)
		}
		vector = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lexical = applyPostFilter(lexical, filter, cfg.TopK)
	vector = applyPostFilter(vector, filter, cfg.TopK)

	merged := mergeCandidates(lexical, vector)
	fused, stats := fuseCandidates(merged, cfg)

	diag := domain.Diagnostics{
		Method:                 cfg.Method,
		FoundInBoth:            stats.foundInBoth,
		LexicalOnly:            stats.lexicalOnly,
		VectorOnly:             stats.vectorOnly,
		SignificantReorderings: stats.significantReorderings,
		TopResultChanged:       stats.topResultChanged,
		DegradedLexicalOnly:    degradedToLexicalOnly,
		LexicalDurationMS:      lexicalDur.Milliseconds(),
		VectorDurationMS:       vectorDur.Milliseconds(),
	}

	if cfg.Rerank && uc.reranker != nil && len(fused) > 0 {
		fused = uc.rerankTop(ctx, query, fused, cfg.TopK, &diag)
	}

	return &domain.HybridResult{
		Items:       trimResults(fused, cfg.Limit),
		Diagnostics: diag,
	}, nil
}

// rerankTop applies the LLM reranker to the fused head. Reranker failure is
// the one designed silent-recovery path: the fusion-only order is returned
// and only the diagnostics flag records the fallback.
func (uc *SearchUseCase) rerankTop(
	ctx context.Context,
	query string,
	fused []domain.FusionResult,
	topK int,
	diag *domain.Diagnostics,
) []domain.FusionResult {
	if topK > len(fused) {
		topK = len(fused)
	}

	reranked, err := uc.reranker.Rerank(ctx, query, fused[:topK], topK)
	if err != nil || len(reranked) != topK {
		diag.RerankFallback = true
		return fused
	}

	out := make([]domain.FusionResult, 0, len(fused))
	out = append(out, reranked...)
	out = append(out, fused[topK:]...)
	for i := range out {
		out[i].NewRank = i + 1
		out[i].RankChange = out[i].OriginalRank - out[i].NewRank
	}
	diag.RerankApplied = true
	return out
}

func validateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is required"))
	}
	return nil
}

// applyPostFilter keeps hits matching the field-equality filter, capped at
// limit. Filtering post-retrieval keeps the backend contract small at the
// cost of hitting the candidate pool harder.
func applyPostFilter(hits []domain.ScoredCase, filter domain.SearchFilter, limit int) []domain.ScoredCase {
	out := make([]domain.ScoredCase, 0, len(hits))
	for _, h := range hits {
		if !filter.Matches(h.Case) {
			continue
		}
		out = append(out, h)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func overfetchLimit(limit int) int {
	return limit * 3
}
