package ollama

import (
	"fmt"
	"strings"

	"github.com/healthqa/testcase-search/internal/core/domain"
)

const maxPromptCases = 20

func buildSummaryPrompt(topic string, cases []domain.TestCase) string {
	var b strings.Builder
	for idx, tc := range cases {
		if idx >= maxPromptCases {
			break
		}
		b.WriteString(fmt.Sprintf(
			"[%d] id=%s module=%s priority=%s\n%s\n%s\n\n",
			idx+1,
			tc.CaseID,
			tc.Module,
			tc.Priority,
			tc.Title,
			tc.Description,
		))
	}

	return fmt.Sprintf(`You are a QA lead reviewing test coverage for a healthcare application.
Summarize what the following test cases cover for the topic, and name obvious gaps.
Answer in a few short paragraphs of plain text, no markdown.

Topic:
%s

Test cases:
%s`, topic, b.String())
}

func buildDraftPrompt(requirement, module string, related []domain.TestCase) string {
	var b strings.Builder
	for idx, tc := range related {
		if idx >= maxPromptCases {
			break
		}
		b.WriteString(fmt.Sprintf(
			"[%d] %s\nSteps: %s\nExpected: %s\n\n",
			idx+1,
			tc.Title,
			tc.Steps,
			tc.ExpectedResults,
		))
	}

	return fmt.Sprintf(`You are a QA engineer writing test cases for a healthcare application.
Write one new test case for the requirement below, in the same style as the existing cases.
Return strict JSON object with keys:
title (string), description (string), steps (string, numbered lines), expected_results (string), priority (one of: critical, high, medium, low).
No markdown, no extra keys.

Requirement:
%s

Module:
%s

Existing cases in this area:
%s`, requirement, module, b.String())
}

func buildRerankPrompt(query string, items []domain.FusionResult) string {
	var b strings.Builder
	for idx, it := range items {
		if idx >= maxPromptCases {
			break
		}
		b.WriteString(fmt.Sprintf(
			"[%d] id=%s module=%s\n%s\n%s\n\n",
			idx+1,
			it.Case.CaseID,
			it.Case.Module,
			it.Case.Title,
			it.Case.Description,
		))
	}

	return fmt.Sprintf(`You are ranking test cases by relevance to a search query.
Order the candidate ids from most to least relevant.
Return strict JSON object with one key:
order (array of id strings, most relevant first).
No markdown, no extra keys.

Query:
%s

Candidates:
%s`, query, b.String())
}
