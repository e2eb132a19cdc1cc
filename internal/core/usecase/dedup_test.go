package usecase

import (
	"math"
	"testing"

	"github.com/healthqa/testcase-search/internal/core/domain"
)

func fusionResult(id, title string) domain.FusionResult {
	return domain.FusionResult{
		Candidate: domain.Candidate{
			Case: domain.TestCase{ID: id, CaseID: id, Title: title},
		},
	}
}

func TestDeduplicateByTitleSuppressesNearDuplicates(t *testing.T) {
	in := []domain.FusionResult{
		fusionResult("a", "Patient login with OTP"),
		fusionResult("b", "Patient login via OTP"),
		fusionResult("c", "Export lab results to PDF"),
	}

	got := deduplicateByTitle(in, 0.6)

	if len(got.Kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(got.Kept))
	}
	if got.Kept[0].Case.ID != "a" || got.Kept[1].Case.ID != "c" {
		t.Fatalf("expected kept [a c], got [%s %s]", got.Kept[0].Case.ID, got.Kept[1].Case.ID)
	}

	if len(got.Suppressed) != 1 {
		t.Fatalf("expected 1 suppressed, got %d", len(got.Suppressed))
	}
	sup := got.Suppressed[0]
	if sup.Result.Case.ID != "b" || sup.DuplicateOf != "a" {
		t.Fatalf("expected b suppressed as duplicate of a, got %+v", sup)
	}
	// {patient login with otp} vs {patient login via otp}: 3 shared of 5.
	if math.Abs(sup.Similarity-0.6) > 1e-9 {
		t.Fatalf("expected similarity 0.6, got %v", sup.Similarity)
	}
}

func TestDeduplicateByTitleFirstSeenIsCanonical(t *testing.T) {
	in := []domain.FusionResult{
		fusionResult("low", "reset password email"),
		fusionResult("high", "reset password email flow"),
	}

	got := deduplicateByTitle(in, 0.5)
	if len(got.Kept) != 1 || got.Kept[0].Case.ID != "low" {
		t.Fatalf("higher-ranked first occurrence must win, got %+v", got.Kept)
	}
	if got.Suppressed[0].DuplicateOf != "low" {
		t.Fatalf("expected duplicate_of=low, got %s", got.Suppressed[0].DuplicateOf)
	}
}

func TestDeduplicateByTitleIdempotent(t *testing.T) {
	in := []domain.FusionResult{
		fusionResult("a", "Verify insurance eligibility"),
		fusionResult("b", "Verify insurance eligibility check"),
		fusionResult("c", "Schedule follow-up appointment"),
	}

	first := deduplicateByTitle(in, 0.5)
	second := deduplicateByTitle(first.Kept, 0.5)

	if len(second.Suppressed) != 0 {
		t.Fatalf("second pass over kept set must suppress nothing, got %d", len(second.Suppressed))
	}
	if len(second.Kept) != len(first.Kept) {
		t.Fatalf("expected %d kept, got %d", len(first.Kept), len(second.Kept))
	}
}

func TestDeduplicateByTitleCaseInsensitive(t *testing.T) {
	in := []domain.FusionResult{
		fusionResult("a", "Patient Login With OTP"),
		fusionResult("b", "patient login with otp"),
	}

	got := deduplicateByTitle(in, 0.9)
	if len(got.Suppressed) != 1 {
		t.Fatalf("expected case-insensitive match to suppress, got %d suppressed", len(got.Suppressed))
	}
	if got.Suppressed[0].Similarity != 1.0 {
		t.Fatalf("expected similarity 1.0, got %v", got.Suppressed[0].Similarity)
	}
}

func TestDeduplicateByTitleEmptyTitlesNeverMatch(t *testing.T) {
	in := []domain.FusionResult{
		fusionResult("a", ""),
		fusionResult("b", ""),
	}

	got := deduplicateByTitle(in, 0.1)
	if len(got.Kept) != 2 {
		t.Fatalf("empty titles must not cluster, got %d kept", len(got.Kept))
	}
}

func TestDeduplicateByTitleStats(t *testing.T) {
	in := []domain.FusionResult{
		fusionResult("a", "one two three"),
		fusionResult("b", "one two three"),
		fusionResult("c", "four five six"),
	}

	got := deduplicateByTitle(in, 0.9)
	st := got.Stats
	if st.Original != 3 || st.Kept != 2 || st.Suppressed != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.SuppressedPct != 33.3 {
		t.Fatalf("expected suppressed pct 33.3, got %v", st.SuppressedPct)
	}
}

func TestDeduplicateByTitleEmptyInput(t *testing.T) {
	got := deduplicateByTitle(nil, 0.6)
	if got.Stats.SuppressedPct != 0 {
		t.Fatalf("empty input must report 0 pct, got %v", got.Stats.SuppressedPct)
	}
	if len(got.Kept) != 0 || len(got.Suppressed) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestJaccard(t *testing.T) {
	a := titleTokens("patient login with otp")
	b := titleTokens("patient login via otp")

	if got := jaccard(a, b); math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("expected 0.6, got %v", got)
	}
	if got := jaccard(a, a); got != 1.0 {
		t.Fatalf("expected self-similarity 1.0, got %v", got)
	}
	if got, want := jaccard(a, b), jaccard(b, a); got != want {
		t.Fatalf("jaccard must be symmetric: %v vs %v", got, want)
	}
}
