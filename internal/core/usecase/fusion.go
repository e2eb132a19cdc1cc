package usecase

import (
	"sort"

	"github.com/healthqa/testcase-search/internal/core/domain"
)

// A rank movement of at least this many positions counts as a significant
// reordering in diagnostics.
const significantRankChange = 5

type fusionStats struct {
	foundInBoth            int
	lexicalOnly            int
	vectorOnly             int
	significantReorderings int
	topResultChanged       bool
}

// fuseCandidates scores every merged candidate under the configured policy
// and returns the full ranked list plus summary statistics. The sort is
// stable: equal fused scores keep merge insertion order. Truncation to the
// final limit is the caller's last step so reranking can still see the
// whole pool.
func fuseCandidates(merged *mergedCandidates, cfg domain.FusionConfig) ([]domain.FusionResult, fusionStats) {
	var stats fusionStats
	if merged == nil || merged.len() == 0 {
		return []domain.FusionResult{}, stats
	}

	out := make([]domain.FusionResult, 0, merged.len())
	for _, id := range merged.order {
		c := merged.get(id)
		out = append(out, domain.FusionResult{
			Candidate:    *c,
			FusedScore:   fusedScore(c, cfg),
			OriginalRank: bestSourceRank(c),
		})

		switch c.Provenance {
		case domain.ProvenanceBoth:
			stats.foundInBoth++
		case domain.ProvenanceLexical:
			stats.lexicalOnly++
		case domain.ProvenanceVector:
			stats.vectorOnly++
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FusedScore > out[j].FusedScore
	})

	for i := range out {
		out[i].NewRank = i + 1
		out[i].RankChange = out[i].OriginalRank - out[i].NewRank
		if abs(out[i].RankChange) >= significantRankChange {
			stats.significantReorderings++
		}
	}

	top := out[0]
	stats.topResultChanged = top.LexicalRank != 1 && top.VectorRank != 1

	return out, stats
}

func fusedScore(c *domain.Candidate, cfg domain.FusionConfig) float64 {
	switch cfg.Method {
	case domain.MethodWeightedSum:
		return c.LexicalNormalized*cfg.LexicalWeight + c.VectorNormalized*cfg.VectorWeight
	case domain.MethodWeightedReciprocal:
		var score float64
		if c.LexicalRank > 0 {
			score += cfg.LexicalWeight / float64(c.LexicalRank)
		}
		if c.VectorRank > 0 {
			score += cfg.VectorWeight / float64(c.VectorRank)
		}
		return score
	default: // MethodRRF
		var score float64
		if c.LexicalRank > 0 {
			score += 1.0 / float64(cfg.RRFK+c.LexicalRank)
		}
		if c.VectorRank > 0 {
			score += 1.0 / float64(cfg.RRFK+c.VectorRank)
		}
		return score
	}
}

// bestSourceRank is the better (smaller) of the candidate's source ranks.
func bestSourceRank(c *domain.Candidate) int {
	switch {
	case c.LexicalRank > 0 && c.VectorRank > 0:
		if c.LexicalRank < c.VectorRank {
			return c.LexicalRank
		}
		return c.VectorRank
	case c.LexicalRank > 0:
		return c.LexicalRank
	default:
		return c.VectorRank
	}
}

func trimResults(results []domain.FusionResult, limit int) []domain.FusionResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
