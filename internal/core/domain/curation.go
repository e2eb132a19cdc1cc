package domain

// CurationResult is the outcome of hybrid retrieval followed by title
// deduplication and LLM summarization of the kept cases.
type CurationResult struct {
	Kept        []FusionResult   `json:"kept"`
	Suppressed  []SuppressedCase `json:"suppressed"`
	Stats       DedupStats       `json:"stats"`
	Summary     string           `json:"summary"`
	Diagnostics Diagnostics      `json:"diagnostics"`
}

// DraftResult is an LLM-drafted test case plus the retrieved cases it was
// grounded on.
type DraftResult struct {
	Draft   TestCase       `json:"draft"`
	Sources []FusionResult `json:"sources"`
}
