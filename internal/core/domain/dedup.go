package domain

// SuppressedCase records a near-duplicate removed by the deduplication
// engine, with the canonical it duplicates and the similarity against it.
type SuppressedCase struct {
	Result      FusionResult `json:"result"`
	DuplicateOf string       `json:"duplicate_of"`
	Similarity  float64      `json:"similarity"`
}

type DedupStats struct {
	Original      int     `json:"original"`
	Kept          int     `json:"kept"`
	Suppressed    int     `json:"suppressed"`
	SuppressedPct float64 `json:"suppressed_pct"`
}

// DedupResult partitions an input list: every input appears exactly once,
// either kept as a canonical or suppressed under exactly one canonical.
type DedupResult struct {
	Kept       []FusionResult   `json:"kept"`
	Suppressed []SuppressedCase `json:"suppressed"`
	Stats      DedupStats       `json:"stats"`
}
