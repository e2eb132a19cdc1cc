package domain

import "fmt"

type Provenance string

const (
	ProvenanceLexical Provenance = "lexical"
	ProvenanceVector  Provenance = "vector"
	ProvenanceBoth    Provenance = "both"
)

// ScoredCase is a raw backend hit: a test case plus the backend's own score
// (trigram/BM25-style relevance for lexical, cosine similarity for vector).
type ScoredCase struct {
	Case  TestCase `json:"case"`
	Score float64  `json:"score"`
}

// Candidate is a test case annotated with retrieval provenance. Ranks are
// 1-based positions in the source list; 0 means absent from that source.
type Candidate struct {
	Case              TestCase   `json:"case"`
	LexicalScore      float64    `json:"lexical_score"`
	LexicalNormalized float64    `json:"lexical_normalized"`
	LexicalRank       int        `json:"lexical_rank"`
	VectorScore       float64    `json:"vector_score"`
	VectorNormalized  float64    `json:"vector_normalized"`
	VectorRank        int        `json:"vector_rank"`
	Provenance        Provenance `json:"provenance"`
}

// FusionResult is a Candidate extended with the fused score and rank
// movement relative to the best source rank.
type FusionResult struct {
	Candidate
	FusedScore   float64 `json:"fused_score"`
	NewRank      int     `json:"new_rank"`
	OriginalRank int     `json:"original_rank"`
	RankChange   int     `json:"rank_change"`
}

type FusionMethod string

const (
	// MethodWeightedSum fuses per-source min-max normalized scores by weight.
	MethodWeightedSum FusionMethod = "weighted_sum"
	// MethodRRF is reciprocal rank fusion: sum of 1/(k+rank) over sources.
	MethodRRF FusionMethod = "rrf"
	// MethodWeightedReciprocal multiplies each source's 1/rank by its weight.
	MethodWeightedReciprocal FusionMethod = "weighted_reciprocal"
)

const DefaultRRFK = 60

// FusionConfig controls the hybrid search pipeline. Weights need not sum
// to one.
type FusionConfig struct {
	Method        FusionMethod `json:"method"`
	LexicalWeight float64      `json:"lexical_weight"`
	VectorWeight  float64      `json:"vector_weight"`
	RRFK          int          `json:"rrf_k"`
	// TopK is the candidate pool requested from each source (the rerank pool).
	TopK int `json:"top_k"`
	// Limit is the final result count; must not exceed TopK.
	Limit int `json:"limit"`
	// Overfetch multiplies TopK on each branch so post-filters and fusion
	// have enough material to reorder meaningfully.
	Overfetch int `json:"overfetch,omitempty"`
	// Rerank hands the fused top-K to the LLM reranker; reranker failure
	// falls back to the fusion-only order.
	Rerank bool `json:"rerank,omitempty"`
	// DegradeOnEmbedFailure returns lexical-only results when the embedding
	// provider fails instead of aborting the whole request.
	DegradeOnEmbedFailure bool `json:"degrade_on_embed_failure,omitempty"`
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		Method:        MethodRRF,
		LexicalWeight: 0.5,
		VectorWeight:  0.5,
		RRFK:          DefaultRRFK,
		TopK:          30,
		Limit:         10,
		Overfetch:     3,
	}
}

// Normalize fills zero-valued fields with defaults.
func (c FusionConfig) Normalize() FusionConfig {
	def := DefaultFusionConfig()
	if c.Method == "" {
		c.Method = def.Method
	}
	if c.RRFK <= 0 {
		c.RRFK = def.RRFK
	}
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.Limit <= 0 {
		c.Limit = def.Limit
	}
	if c.Overfetch <= 0 {
		c.Overfetch = def.Overfetch
	}
	return c
}

// Validate rejects caller-input errors before any backend call is made.
func (c FusionConfig) Validate() error {
	switch c.Method {
	case MethodWeightedSum, MethodRRF, MethodWeightedReciprocal:
	default:
		return WrapError(ErrInvalidConfig, "fusion config", fmt.Errorf("unknown fusion method %q", c.Method))
	}
	if c.LexicalWeight < 0 || c.VectorWeight < 0 {
		return WrapError(ErrInvalidConfig, "fusion config", fmt.Errorf("weights must be non-negative, got lexical=%v vector=%v", c.LexicalWeight, c.VectorWeight))
	}
	if c.Limit <= 0 {
		return WrapError(ErrInvalidConfig, "fusion config", fmt.Errorf("limit must be positive, got %d", c.Limit))
	}
	if c.Limit > c.TopK {
		return WrapError(ErrInvalidConfig, "fusion config", fmt.Errorf("limit %d exceeds top_k pool %d", c.Limit, c.TopK))
	}
	return nil
}

// Diagnostics summarizes one hybrid search for callers and dashboards.
type Diagnostics struct {
	Method                 FusionMethod `json:"method"`
	FoundInBoth            int          `json:"found_in_both"`
	LexicalOnly            int          `json:"lexical_only"`
	VectorOnly             int          `json:"vector_only"`
	SignificantReorderings int          `json:"significant_reorderings"`
	TopResultChanged       bool         `json:"top_result_changed"`
	RerankApplied          bool         `json:"rerank_applied"`
	RerankFallback         bool         `json:"rerank_fallback"`
	DegradedLexicalOnly    bool         `json:"degraded_lexical_only,omitempty"`
	LexicalDurationMS      int64        `json:"lexical_duration_ms"`
	VectorDurationMS       int64        `json:"vector_duration_ms"`
}

// HybridResult is the caller-facing result of one hybrid search.
type HybridResult struct {
	Items       []FusionResult `json:"items"`
	Diagnostics Diagnostics    `json:"diagnostics"`
}
