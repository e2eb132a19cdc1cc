package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/healthqa/testcase-search/internal/config"
	"github.com/healthqa/testcase-search/internal/core/domain"
)

type ingestErrFake struct {
	err error
}

func (f ingestErrFake) Upload(context.Context, string, string, io.Reader) (*domain.Workbook, error) {
	return nil, f.err
}

type readerErrFake struct {
	err error
}

func (f readerErrFake) GetWorkbook(context.Context, string) (*domain.Workbook, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Workbook{ID: "wb-1", Filename: "plan.xlsx", Status: domain.StatusReady}, nil
}

type searcherErrFake struct {
	err    error
	gotCfg domain.FusionConfig
}

func (f *searcherErrFake) SearchLexical(context.Context, string, int, domain.SearchFilter) ([]domain.ScoredCase, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ScoredCase{}, nil
}

func (f *searcherErrFake) SearchVector(context.Context, string, int, domain.SearchFilter) ([]domain.ScoredCase, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ScoredCase{}, nil
}

func (f *searcherErrFake) SearchHybrid(_ context.Context, _ string, cfg domain.FusionConfig, _ domain.SearchFilter) (*domain.HybridResult, error) {
	f.gotCfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	return &domain.HybridResult{Items: []domain.FusionResult{}, Diagnostics: domain.Diagnostics{Method: cfg.Method}}, nil
}

type curatorErrFake struct {
	err error
}

func (f curatorErrFake) DedupeAndSummarize(context.Context, string, int, float64, domain.SearchFilter) (*domain.CurationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CurationResult{Summary: "ok"}, nil
}

func (f curatorErrFake) DraftTestCase(context.Context, string, string, int) (*domain.DraftResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.DraftResult{Draft: domain.TestCase{Title: "drafted"}}, nil
}

func newErrTestRouter(searcher *searcherErrFake, curator curatorErrFake, reader readerErrFake) http.Handler {
	return NewRouter(
		config.Config{FusionMethod: "rrf", FusionLexWeight: 0.5, FusionVecWeight: 0.5, FusionRRFK: 60, SearchTopK: 30, SearchLimit: 10, SearchOverfetch: 3, DedupThreshold: 0.6},
		"api",
		ingestErrFake{},
		reader,
		searcher,
		curator,
		nil,
	).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHybridSearchMapsInvalidConfigTo400(t *testing.T) {
	searcher := &searcherErrFake{err: domain.WrapError(domain.ErrInvalidConfig, "fusion config", errors.New("unknown fusion method"))}
	handler := newErrTestRouter(searcher, curatorErrFake{}, readerErrFake{})

	res := postJSON(t, handler, "/v1/search/hybrid", map[string]any{"query": "otp login", "method": "bogus"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestHybridSearchMapsProviderUnavailableTo503(t *testing.T) {
	searcher := &searcherErrFake{err: domain.WrapError(domain.ErrProviderUnavailable, "embed query", errors.New("connection refused"))}
	handler := newErrTestRouter(searcher, curatorErrFake{}, readerErrFake{})

	res := postJSON(t, handler, "/v1/search/hybrid", map[string]any{"query": "otp login"})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestLexicalSearchMapsBackendFailureTo502(t *testing.T) {
	searcher := &searcherErrFake{err: domain.WrapError(domain.ErrBackendQuery, "lexical search", errors.New("qdrant down"))}
	handler := newErrTestRouter(searcher, curatorErrFake{}, readerErrFake{})

	res := postJSON(t, handler, "/v1/search/lexical", map[string]any{"query": "otp login"})
	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.Code)
	}
}

func TestGetWorkbookByIDReturns404ForNotFound(t *testing.T) {
	reader := readerErrFake{err: domain.WrapError(domain.ErrWorkbookNotFound, "get workbook", errors.New("id=missing"))}
	handler := newErrTestRouter(&searcherErrFake{}, curatorErrFake{}, reader)

	req := httptest.NewRequest(http.MethodGet, "/v1/testcases/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestDedupeSummarizeMapsInvalidThresholdTo400(t *testing.T) {
	curator := curatorErrFake{err: domain.WrapError(domain.ErrInvalidConfig, "dedup threshold", errors.New("out of range"))}
	handler := newErrTestRouter(&searcherErrFake{}, curator, readerErrFake{})

	res := postJSON(t, handler, "/v1/dedupe/summarize", map[string]any{"query": "otp", "threshold": 1.5})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestSearchRejectsInvalidJSON(t *testing.T) {
	handler := newErrTestRouter(&searcherErrFake{}, curatorErrFake{}, readerErrFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/search/hybrid", bytes.NewBufferString("{not json"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
