package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/healthqa/testcase-search/internal/core/domain"
	"github.com/healthqa/testcase-search/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	BaseURL    string
	GenModel   string
	EmbedModel string
	// Executor is optional; without it calls run once with no retry or
	// breaker.
	Executor *resilience.Executor
}

func New(options Options) *Client {
	return &Client{
		baseURL:    strings.TrimRight(options.BaseURL, "/"),
		genModel:   options.GenModel,
		embedModel: options.EmbedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   options.Executor,
	}
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return wrapTemporaryIfNeeded(operation, fn(ctx))
	}
	err := c.executor.Execute(ctx, operation, fn, classifyOllamaError)
	return wrapTemporaryIfNeeded(operation, err)
}

type Embedder struct {
	client  *Client
	limiter *rate.Limiter
}

// NewEmbedder wraps the embedding endpoint. The rate limiter smooths batch
// ingestion so a large workbook does not starve interactive query embeds;
// limit <= 0 disables it.
func NewEmbedder(client *Client, limit rate.Limit, burst int) *Embedder {
	var limiter *rate.Limiter
	if limit > 0 {
		limiter = rate.NewLimiter(limit, burst)
	}
	return &Embedder{client: client, limiter: limiter}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.execute(ctx, "embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Summarize(ctx context.Context, topic string, cases []domain.TestCase) (string, error) {
	return g.client.generateText(ctx, buildSummaryPrompt(topic, cases))
}

func (g *Generator) DraftTestCase(ctx context.Context, requirement, module string, related []domain.TestCase) (*domain.TestCase, error) {
	respText, err := g.client.generateJSON(ctx, buildDraftPrompt(requirement, module, related))
	if err != nil {
		return nil, err
	}

	var draft struct {
		Title           string `json:"title"`
		Description     string `json:"description"`
		Steps           string `json:"steps"`
		ExpectedResults string `json:"expected_results"`
		Priority        string `json:"priority"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &draft); err != nil {
		return nil, fmt.Errorf("parse draft json: %w", err)
	}
	if strings.TrimSpace(draft.Title) == "" {
		return nil, fmt.Errorf("draft has no title")
	}

	return &domain.TestCase{
		Title:           draft.Title,
		Module:          module,
		Description:     draft.Description,
		Steps:           draft.Steps,
		ExpectedResults: draft.ExpectedResults,
		Priority:        draft.Priority,
	}, nil
}

type Reranker struct {
	client *Client
}

func NewReranker(client *Client) *Reranker {
	return &Reranker{client: client}
}

// Rerank asks the model to reorder the fused head by relevance to the query.
// The model returns case IDs; anything it omits keeps its fused position at
// the tail, so the output always has the same members as the input.
func (r *Reranker) Rerank(ctx context.Context, query string, items []domain.FusionResult, topK int) ([]domain.FusionResult, error) {
	if len(items) == 0 {
		return items, nil
	}

	respText, err := r.client.generateJSON(ctx, buildRerankPrompt(query, items))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Order []string `json:"order"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &parsed); err != nil {
		return nil, fmt.Errorf("parse rerank json: %w", err)
	}
	if len(parsed.Order) == 0 {
		return nil, fmt.Errorf("rerank returned empty order")
	}

	byID := make(map[string]domain.FusionResult, len(items))
	for _, it := range items {
		byID[it.Case.CaseID] = it
	}

	out := make([]domain.FusionResult, 0, len(items))
	taken := make(map[string]bool, len(items))
	for _, id := range parsed.Order {
		it, ok := byID[id]
		if !ok || taken[id] {
			continue
		}
		out = append(out, it)
		taken[id] = true
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("rerank order matched no candidates")
	}
	for _, it := range items {
		if !taken[it.Case.CaseID] {
			out = append(out, it)
		}
	}
	return out, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	err := c.execute(ctx, "generate", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
