package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/healthqa/testcase-search/internal/config"
	"github.com/healthqa/testcase-search/internal/core/domain"
	"github.com/healthqa/testcase-search/internal/core/ports"
	"github.com/healthqa/testcase-search/internal/observability/metrics"
)

type Router struct {
	cfg      config.Config
	service  string
	ingestor ports.WorkbookIngestor
	reader   ports.WorkbookReader
	searcher ports.CaseSearcher
	curator  ports.CaseCurator
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	service string,
	ingestor ports.WorkbookIngestor,
	reader ports.WorkbookReader,
	searcher ports.CaseSearcher,
	curator ports.CaseCurator,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:      cfg,
		service:  service,
		ingestor: ingestor,
		reader:   reader,
		searcher: searcher,
		curator:  curator,
		metrics:  m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/testcases", rt.uploadWorkbook)
	mux.HandleFunc("/v1/testcases/generate", rt.generateTestCase)
	mux.HandleFunc("/v1/testcases/", rt.getWorkbookByID)
	mux.HandleFunc("/v1/search/lexical", rt.searchLexical)
	mux.HandleFunc("/v1/search/vector", rt.searchVector)
	mux.HandleFunc("/v1/search/hybrid", rt.searchHybrid)
	mux.HandleFunc("/v1/dedupe/summarize", rt.dedupeSummarize)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadWorkbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	wb, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, wb)
}

func (rt *Router) getWorkbookByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/testcases/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workbook id is required"})
		return
	}

	wb, err := rt.reader.GetWorkbook(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wb)
}

type searchRequest struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit"`
	Module   string `json:"module"`
	Priority string `json:"priority"`
}

func (rt *Router) searchLexical(w http.ResponseWriter, r *http.Request) {
	rt.searchSingleMode(w, r, "lexical", rt.searcher.SearchLexical)
}

func (rt *Router) searchVector(w http.ResponseWriter, r *http.Request) {
	rt.searchSingleMode(w, r, "vector", rt.searcher.SearchVector)
}

func (rt *Router) searchSingleMode(
	w http.ResponseWriter,
	r *http.Request,
	mode string,
	search func(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.ScoredCase, error),
) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	items, err := search(r.Context(), req.Query, req.Limit, domain.SearchFilter{
		Module:   req.Module,
		Priority: req.Priority,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSearch(rt.service, mode, len(items), time.Since(start))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

type hybridSearchRequest struct {
	searchRequest
	Method string `json:"method"`
	// Weights and rerank are pointers so an explicit zero or false is
	// distinguishable from an omitted field.
	LexicalWeight         *float64 `json:"lexical_weight"`
	VectorWeight          *float64 `json:"vector_weight"`
	RRFK                  int      `json:"rrf_k"`
	TopK                  int      `json:"top_k"`
	Overfetch             int      `json:"overfetch"`
	Rerank                *bool    `json:"rerank"`
	DegradeOnEmbedFailure bool     `json:"degrade_on_embed_failure"`
}

// fusionConfigFrom merges the request over the server defaults: fields the
// caller leaves at zero fall back to the configured values.
func (rt *Router) fusionConfigFrom(req hybridSearchRequest) domain.FusionConfig {
	cfg := domain.FusionConfig{
		Method:                domain.FusionMethod(rt.cfg.FusionMethod),
		LexicalWeight:         rt.cfg.FusionLexWeight,
		VectorWeight:          rt.cfg.FusionVecWeight,
		RRFK:                  rt.cfg.FusionRRFK,
		TopK:                  rt.cfg.SearchTopK,
		Limit:                 rt.cfg.SearchLimit,
		Overfetch:             rt.cfg.SearchOverfetch,
		Rerank:                rt.cfg.RerankEnabled,
		DegradeOnEmbedFailure: req.DegradeOnEmbedFailure,
	}

	if req.Method != "" {
		cfg.Method = domain.FusionMethod(req.Method)
	}
	if req.LexicalWeight != nil {
		cfg.LexicalWeight = *req.LexicalWeight
	}
	if req.VectorWeight != nil {
		cfg.VectorWeight = *req.VectorWeight
	}
	if req.RRFK > 0 {
		cfg.RRFK = req.RRFK
	}
	if req.TopK > 0 {
		cfg.TopK = req.TopK
	}
	if req.Limit > 0 {
		cfg.Limit = req.Limit
	}
	if req.Overfetch > 0 {
		cfg.Overfetch = req.Overfetch
	}
	if req.Rerank != nil {
		cfg.Rerank = *req.Rerank
	}
	return cfg
}

func (rt *Router) searchHybrid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req hybridSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	result, err := rt.searcher.SearchHybrid(r.Context(), req.Query, rt.fusionConfigFrom(req), domain.SearchFilter{
		Module:   req.Module,
		Priority: req.Priority,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		d := result.Diagnostics
		rt.metrics.RecordSearch(rt.service, "hybrid", len(result.Items), time.Since(start))
		rt.metrics.RecordHybridDiagnostics(rt.service, string(d.Method), d.LexicalDurationMS, d.VectorDurationMS, d.DegradedLexicalOnly)
		if d.RerankApplied || d.RerankFallback {
			rt.metrics.RecordRerank(rt.service, d.RerankApplied)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) dedupeSummarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		searchRequest
		Threshold float64 `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	threshold := req.Threshold
	if threshold == 0 {
		threshold = rt.cfg.DedupThreshold
	}

	result, err := rt.curator.DedupeAndSummarize(r.Context(), req.Query, req.Limit, threshold, domain.SearchFilter{
		Module:   req.Module,
		Priority: req.Priority,
	})
	if rt.metrics != nil {
		rt.metrics.RecordGeneration(rt.service, "summarize", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordDedup(rt.service, result.Stats.SuppressedPct)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) generateTestCase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Requirement string `json:"requirement"`
		Module      string `json:"module"`
		Limit       int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.curator.DraftTestCase(r.Context(), req.Requirement, req.Module, req.Limit)
	if rt.metrics != nil {
		rt.metrics.RecordGeneration(rt.service, "draft", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
