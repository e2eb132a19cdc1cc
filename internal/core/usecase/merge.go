package usecase

import "github.com/healthqa/testcase-search/internal/core/domain"

// mergedCandidates is the result of combining the two source lists: a map
// keyed by case ID plus the insertion order (lexical list order, then new
// vector entries) that fusion relies on for stable tie-breaking.
type mergedCandidates struct {
	byID  map[string]*domain.Candidate
	order []string
}

func (m *mergedCandidates) get(id string) *domain.Candidate {
	return m.byID[id]
}

func (m *mergedCandidates) len() int {
	return len(m.order)
}

// mergeCandidates combines a lexical and a vector result list into one
// candidate set. Each source is min-max normalized against its own score
// distribution. A case found in both sources appears exactly once with both
// score pairs populated; the lexical entry is never overwritten, only
// extended with the vector fields.
func mergeCandidates(lexical, vector []domain.ScoredCase) *mergedCandidates {
	merged := &mergedCandidates{
		byID:  make(map[string]*domain.Candidate, len(lexical)+len(vector)),
		order: make([]string, 0, len(lexical)+len(vector)),
	}

	lexNorm := minMaxNormalize(scoresOf(lexical))
	for i, hit := range lexical {
		id := hit.Case.ID
		if _, ok := merged.byID[id]; ok {
			continue
		}
		merged.byID[id] = &domain.Candidate{
			Case:              hit.Case,
			LexicalScore:      hit.Score,
			LexicalNormalized: lexNorm[i],
			LexicalRank:       i + 1,
			Provenance:        domain.ProvenanceLexical,
		}
		merged.order = append(merged.order, id)
	}

	vecNorm := minMaxNormalize(scoresOf(vector))
	for i, hit := range vector {
		id := hit.Case.ID
		if existing, ok := merged.byID[id]; ok {
			if existing.VectorRank > 0 {
				continue
			}
			existing.VectorScore = hit.Score
			existing.VectorNormalized = vecNorm[i]
			existing.VectorRank = i + 1
			existing.Provenance = domain.ProvenanceBoth
			continue
		}
		merged.byID[id] = &domain.Candidate{
			Case:             hit.Case,
			VectorScore:      hit.Score,
			VectorNormalized: vecNorm[i],
			VectorRank:       i + 1,
			Provenance:       domain.ProvenanceVector,
		}
		merged.order = append(merged.order, id)
	}

	return merged
}

func scoresOf(hits []domain.ScoredCase) []float64 {
	out := make([]float64, len(hits))
	for i, h := range hits {
		out[i] = h.Score
	}
	return out
}
