package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/healthqa/testcase-search/internal/core/domain"
)

type searcherFake struct {
	result    *domain.HybridResult
	err       error
	gotQuery  string
	gotCfg    domain.FusionConfig
	gotFilter domain.SearchFilter
}

func (f *searcherFake) SearchLexical(context.Context, string, int, domain.SearchFilter) ([]domain.ScoredCase, error) {
	return nil, errors.New("not used")
}

func (f *searcherFake) SearchVector(context.Context, string, int, domain.SearchFilter) ([]domain.ScoredCase, error) {
	return nil, errors.New("not used")
}

func (f *searcherFake) SearchHybrid(_ context.Context, query string, cfg domain.FusionConfig, filter domain.SearchFilter) (*domain.HybridResult, error) {
	f.gotQuery = query
	f.gotCfg = cfg
	f.gotFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type generatorFake struct {
	summary    string
	summaryErr error
	gotCases   []domain.TestCase
	draft      *domain.TestCase
	draftErr   error
}

func (f *generatorFake) Summarize(_ context.Context, _ string, cases []domain.TestCase) (string, error) {
	f.gotCases = cases
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	return f.summary, nil
}

func (f *generatorFake) DraftTestCase(_ context.Context, _, _ string, related []domain.TestCase) (*domain.TestCase, error) {
	f.gotCases = related
	if f.draftErr != nil {
		return nil, f.draftErr
	}
	return f.draft, nil
}

func hybridFixture() *domain.HybridResult {
	return &domain.HybridResult{
		Items: []domain.FusionResult{
			fusionResult("a", "Patient login with OTP"),
			fusionResult("b", "Patient login via OTP"),
			fusionResult("c", "Export lab results"),
		},
		Diagnostics: domain.Diagnostics{Method: domain.MethodRRF, FoundInBoth: 1},
	}
}

func TestDedupeAndSummarize(t *testing.T) {
	searcher := &searcherFake{result: hybridFixture()}
	generator := &generatorFake{summary: "covers login and export"}
	uc := NewCurateUseCase(searcher, generator)

	got, err := uc.DedupeAndSummarize(context.Background(), "patient login", 5, 0, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Kept) != 2 || len(got.Suppressed) != 1 {
		t.Fatalf("expected 2 kept / 1 suppressed at default threshold, got %d/%d", len(got.Kept), len(got.Suppressed))
	}
	if got.Summary != "covers login and export" {
		t.Fatalf("unexpected summary: %q", got.Summary)
	}
	// Only kept cases feed the summarizer.
	if len(generator.gotCases) != 2 {
		t.Fatalf("expected summarizer to see 2 kept cases, got %d", len(generator.gotCases))
	}
	if got.Diagnostics.Method != domain.MethodRRF {
		t.Fatalf("retrieval diagnostics must pass through, got %+v", got.Diagnostics)
	}
	if searcher.gotCfg.Limit != 5 {
		t.Fatalf("expected requested limit 5, got %d", searcher.gotCfg.Limit)
	}
}

func TestFusionConfigForLimitGrowsPool(t *testing.T) {
	def := domain.DefaultFusionConfig()

	cfg := fusionConfigForLimit(50)
	if cfg.Limit != 50 || cfg.TopK != 50 {
		t.Fatalf("limit above the default pool must grow top_k, got limit=%d top_k=%d", cfg.Limit, cfg.TopK)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("grown config must validate: %v", err)
	}

	cfg = fusionConfigForLimit(5)
	if cfg.Limit != 5 || cfg.TopK != def.TopK {
		t.Fatalf("limit within the pool must not shrink top_k, got limit=%d top_k=%d", cfg.Limit, cfg.TopK)
	}

	if got := fusionConfigForLimit(0); got != def {
		t.Fatalf("zero limit must keep defaults, got %+v", got)
	}
}

func TestDedupeAndSummarizeLargeLimitGrowsPool(t *testing.T) {
	searcher := &searcherFake{result: hybridFixture()}
	uc := NewCurateUseCase(searcher, &generatorFake{summary: "ok"})

	if _, err := uc.DedupeAndSummarize(context.Background(), "patient login", 50, 0, domain.SearchFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if searcher.gotCfg.Limit != 50 || searcher.gotCfg.TopK != 50 {
		t.Fatalf("expected limit and pool grown to 50, got %+v", searcher.gotCfg)
	}
}

func TestDedupeAndSummarizeInvalidThreshold(t *testing.T) {
	uc := NewCurateUseCase(&searcherFake{result: hybridFixture()}, &generatorFake{})

	_, err := uc.DedupeAndSummarize(context.Background(), "q", 5, 1.5, domain.SearchFilter{})
	if !domain.IsKind(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestDedupeAndSummarizeEmptyRetrieval(t *testing.T) {
	searcher := &searcherFake{result: &domain.HybridResult{Items: []domain.FusionResult{}}}
	generator := &generatorFake{summaryErr: errors.New("must not be called")}
	uc := NewCurateUseCase(searcher, generator)

	got, err := uc.DedupeAndSummarize(context.Background(), "q", 5, 0, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Summary != "" || got.Stats.Original != 0 {
		t.Fatalf("expected empty curation result, got %+v", got)
	}
}

func TestDedupeAndSummarizeGeneratorFailure(t *testing.T) {
	searcher := &searcherFake{result: hybridFixture()}
	uc := NewCurateUseCase(searcher, &generatorFake{summaryErr: errors.New("model overloaded")})

	_, err := uc.DedupeAndSummarize(context.Background(), "q", 5, 0, domain.SearchFilter{})
	if !domain.IsKind(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestDraftTestCase(t *testing.T) {
	searcher := &searcherFake{result: hybridFixture()}
	generator := &generatorFake{draft: &domain.TestCase{Title: "Patient login lockout after 5 attempts"}}
	uc := NewCurateUseCase(searcher, generator)

	got, err := uc.DraftTestCase(context.Background(), "lockout after failed logins", "auth", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Draft.Title != "Patient login lockout after 5 attempts" {
		t.Fatalf("unexpected draft: %+v", got.Draft)
	}
	if len(got.Sources) != 3 {
		t.Fatalf("expected retrieval sources attached, got %d", len(got.Sources))
	}
	if searcher.gotFilter.Module != "auth" {
		t.Fatalf("module must scope retrieval, got filter %+v", searcher.gotFilter)
	}
	if len(generator.gotCases) != 3 {
		t.Fatalf("expected generator to receive 3 related cases, got %d", len(generator.gotCases))
	}
}

func TestDraftTestCaseEmptyRequirement(t *testing.T) {
	uc := NewCurateUseCase(&searcherFake{}, &generatorFake{})

	_, err := uc.DraftTestCase(context.Background(), " ", "auth", 3)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDraftTestCaseRetrievalFailurePropagates(t *testing.T) {
	searcher := &searcherFake{err: domain.WrapError(domain.ErrBackendQuery, "lexical search", errors.New("timeout"))}
	uc := NewCurateUseCase(searcher, &generatorFake{})

	_, err := uc.DraftTestCase(context.Background(), "requirement", "", 3)
	if !domain.IsKind(err, domain.ErrBackendQuery) {
		t.Fatalf("expected ErrBackendQuery, got %v", err)
	}
}
