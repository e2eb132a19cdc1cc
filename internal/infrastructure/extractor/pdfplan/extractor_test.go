package pdfplan

import "testing"

func TestParsePlanTextSplitsOnCaseMarkers(t *testing.T) {
	text := "Regression plan v2\n" +
		"TC-001: Patient login with OTP\nOpen the login page and enter a valid OTP.\n" +
		"TC-002: Export lab results\nOpen a finished lab order and export it.\n"

	got := parsePlanText(text, "wb-1")
	if len(got) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(got))
	}

	first := got[0]
	if first.CaseID != "TC-001" || first.Title != "Patient login with OTP" {
		t.Fatalf("unexpected first case: %+v", first)
	}
	if first.Description == "" || first.WorkbookID != "wb-1" || first.ID == "" {
		t.Fatalf("unexpected first case fields: %+v", first)
	}
	if got[1].CaseID != "TC-002" {
		t.Fatalf("unexpected second case: %+v", got[1])
	}
}

func TestParsePlanTextWithoutLineBreaks(t *testing.T) {
	// PDF text extraction often loses layout newlines entirely.
	text := "TC_100 Verify insurance eligibility for a returning patient with an expired policy number and confirm that the billing module raises a readable warning before any claim is submitted to the clearing house"

	got := parsePlanText(text, "wb-1")
	if len(got) != 1 {
		t.Fatalf("expected 1 case, got %d", len(got))
	}
	tc := got[0]
	if tc.CaseID != "TC_100" {
		t.Fatalf("unexpected case id: %s", tc.CaseID)
	}
	if len([]rune(tc.Title)) > 120 {
		t.Fatalf("title must be cut to a readable length, got %d runes", len([]rune(tc.Title)))
	}
	if tc.Description == "" {
		t.Fatalf("overflow must land in the description")
	}
}

func TestParsePlanTextNoMarkers(t *testing.T) {
	if got := parsePlanText("just prose, no test cases here", "wb-1"); len(got) != 0 {
		t.Fatalf("expected no cases, got %d", len(got))
	}
}
