package summarize

import (
	"context"
)

// Tier selects the cost/quality level of the summarization model.
type Tier string

const (
	TierPremium  Tier = "premium"  // Higher fidelity, used for trusted sources
	TierStandard Tier = "standard" // Cost-efficient default
)

// Request carries one article to the summarization provider. Body is
// truncated by the client before sending.
type Request struct {
	Title    string
	Body     string
	Language string // Source language of the article text
	Tier     Tier
}

// Result is the provider's structured bilingual output for one article.
type Result struct {
	TitleEn      string   `json:"title_en"`
	TitleEs      string   `json:"title_es"`
	SummaryEn    string   `json:"summary_en"`
	SummaryEs    string   `json:"summary_es"`
	RationaleEn  string   `json:"rationale_en"`
	RationaleEs  string   `json:"rationale_es"`
	QualityScore float64  `json:"quality_score"` // 0-1 scale
	TopicTags    []string `json:"topic_tags"`
}

// Summarizer produces a structured bilingual summary for an article. The call
// has no side effects on the provider; malformed output is a hard failure for
// the item, not a partial success.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (*Result, error)
}
