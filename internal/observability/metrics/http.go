package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchRequestsTotal  *prometheus.CounterVec
	searchResults        *prometheus.HistogramVec
	searchDuration       *prometheus.HistogramVec
	branchDuration       *prometheus.HistogramVec
	fusionMethodTotal    *prometheus.CounterVec
	rerankTotal          *prometheus.CounterVec
	degradedSearchTotal  *prometheus.CounterVec
	dedupSuppressedPct   *prometheus.HistogramVec
	generationTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tcs",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tcs",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tcs",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tcs",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total successful search requests by retrieval mode.",
		},
		[]string{"service", "mode"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tcs",
			Subsystem: "search",
			Name:      "results_returned",
			Help:      "Distribution of results returned per successful search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "mode"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tcs",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search execution duration in seconds by retrieval mode.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "mode"},
	)
	branchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tcs",
			Subsystem: "search",
			Name:      "branch_duration_seconds",
			Help:      "Duration of the lexical and vector branches of hybrid search.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "branch"},
	)
	fusionMethodTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tcs",
			Subsystem: "fusion",
			Name:      "requests_total",
			Help:      "Total hybrid searches by fusion method.",
		},
		[]string{"service", "method"},
	)
	rerankTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tcs",
			Subsystem: "fusion",
			Name:      "rerank_total",
			Help:      "Rerank outcomes: applied or fallback to fusion order.",
		},
		[]string{"service", "outcome"},
	)
	degradedSearchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tcs",
			Subsystem: "search",
			Name:      "degraded_total",
			Help:      "Hybrid searches served lexical-only after an embedding failure.",
		},
		[]string{"service"},
	)
	dedupSuppressedPct := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tcs",
			Subsystem: "dedup",
			Name:      "suppressed_pct",
			Help:      "Percentage of results suppressed as near-duplicates per request.",
			Buckets:   []float64{0, 5, 10, 20, 30, 40, 50, 75, 100},
		},
		[]string{"service"},
	)
	generationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tcs",
			Subsystem: "llm",
			Name:      "generation_total",
			Help:      "Total LLM generation calls by endpoint and status.",
		},
		[]string{"service", "endpoint", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchRequestsTotal,
		searchResults,
		searchDuration,
		branchDuration,
		fusionMethodTotal,
		rerankTotal,
		degradedSearchTotal,
		dedupSuppressedPct,
		generationTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		searchRequestsTotal: searchRequestsTotal,
		searchResults:       searchResults,
		searchDuration:      searchDuration,
		branchDuration:      branchDuration,
		fusionMethodTotal:   fusionMethodTotal,
		rerankTotal:         rerankTotal,
		degradedSearchTotal: degradedSearchTotal,
		dedupSuppressedPct:  dedupSuppressedPct,
		generationTotal:     generationTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case path == "/v1/testcases/generate":
		return path
	case strings.HasPrefix(path, "/v1/testcases/"):
		return "/v1/testcases/{workbook_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordSearch(service, mode string, resultCount int, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	m.searchRequestsTotal.WithLabelValues(service, mode).Inc()
	m.searchResults.WithLabelValues(service, mode).Observe(float64(resultCount))
	m.searchDuration.WithLabelValues(service, mode).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordHybridDiagnostics(service, method string, lexicalMS, vectorMS int64, degraded bool) {
	if method == "" {
		method = "unknown"
	}
	m.fusionMethodTotal.WithLabelValues(service, method).Inc()
	m.branchDuration.WithLabelValues(service, "lexical").Observe(float64(lexicalMS) / 1000.0)
	m.branchDuration.WithLabelValues(service, "vector").Observe(float64(vectorMS) / 1000.0)
	if degraded {
		m.degradedSearchTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordRerank(service string, applied bool) {
	outcome := "fallback"
	if applied {
		outcome = "applied"
	}
	m.rerankTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordDedup(service string, suppressedPct float64) {
	m.dedupSuppressedPct.WithLabelValues(service).Observe(suppressedPct)
}

func (m *HTTPServerMetrics) RecordGeneration(service, endpoint string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.generationTotal.WithLabelValues(service, endpoint, status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
