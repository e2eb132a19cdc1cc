package usecase

import (
	"math"
	"strings"

	"github.com/healthqa/testcase-search/internal/core/domain"
)

// deduplicateByTitle walks the ranked list in order and suppresses items
// whose title is near-duplicate (word Jaccard >= threshold) of an earlier
// canonical. The first-seen item of each cluster is the canonical, so the
// same input order always yields the same partition.
//
// Pairwise comparison is O(n^2) in the candidate count; callers bound the
// pool before deduplication.
func deduplicateByTitle(results []domain.FusionResult, threshold float64) domain.DedupResult {
	out := domain.DedupResult{
		Kept:       make([]domain.FusionResult, 0, len(results)),
		Suppressed: []domain.SuppressedCase{},
	}

	type canonical struct {
		id     string
		tokens map[string]struct{}
	}
	seen := make([]canonical, 0, len(results))

	for _, r := range results {
		tokens := titleTokens(r.Case.Title)

		duplicate := false
		for _, c := range seen {
			sim := jaccard(tokens, c.tokens)
			if sim >= threshold {
				out.Suppressed = append(out.Suppressed, domain.SuppressedCase{
					Result:      r,
					DuplicateOf: c.id,
					Similarity:  sim,
				})
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		seen = append(seen, canonical{id: r.Case.ID, tokens: tokens})
		out.Kept = append(out.Kept, r)
	}

	out.Stats = domain.DedupStats{
		Original:   len(results),
		Kept:       len(out.Kept),
		Suppressed: len(out.Suppressed),
	}
	if out.Stats.Original > 0 {
		pct := float64(out.Stats.Suppressed) / float64(out.Stats.Original) * 100
		out.Stats.SuppressedPct = math.Round(pct*10) / 10
	}
	return out
}

func titleTokens(title string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(title))
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// jaccard is |intersection| / |union| over word sets; symmetric, and 0 when
// either set is empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
