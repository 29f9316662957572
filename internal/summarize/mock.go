package summarize

import (
	"context"
	"strings"
)

// MockSummarizer is a deterministic, rule-based Summarizer for local
// development and tests. No network calls.
type MockSummarizer struct{}

// NewMockSummarizer creates a keyless summarizer.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

var mockKeywords = map[string]string{
	"econom":  "economy",
	"market":  "economy",
	"tech":    "technology",
	"softwar": "technology",
	"sport":   "sports",
	"futbol":  "sports",
	"footbal": "sports",
	"electio": "politics",
	"governm": "politics",
	"health":  "health",
}

// Summarize produces a fixed-shape bilingual result. Quality scales with body
// length so short or thin articles still get filtered downstream.
func (m *MockSummarizer) Summarize(ctx context.Context, req Request) (*Result, error) {
	quality := 0.5
	if len(req.Body) > 400 {
		quality = 0.8
	}

	lower := strings.ToLower(req.Title + " " + req.Body)
	tagSet := make(map[string]struct{})
	for keyword, tag := range mockKeywords {
		if strings.Contains(lower, keyword) {
			tagSet[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, tag)
	}

	summary := req.Body
	if len(summary) > 200 {
		summary = summary[:200]
	}

	return &Result{
		TitleEn:      req.Title,
		TitleEs:      req.Title,
		SummaryEn:    summary,
		SummaryEs:    summary,
		RationaleEn:  "Selected by the rule-based summarizer.",
		RationaleEs:  "Seleccionado por el resumidor basado en reglas.",
		QualityScore: quality,
		TopicTags:    tags,
	}, nil
}
