package pipeline

import "github.com/prensa-app/prensa/internal/summarize"

// Policy holds the two pure gating decisions of the pipeline: which model
// tier an article gets, and whether its summary is good enough to publish.
// Both thresholds come from configuration; nothing here learns or mutates.
type Policy struct {
	// ReliabilityThreshold is the source reliability above which (strictly)
	// the premium tier is used.
	ReliabilityThreshold float64

	// QualityThreshold is the minimum provider quality score to accept.
	QualityThreshold float64
}

// SelectModel picks the provider tier for a source. Trusted sources get the
// premium tier for summarization fidelity; everything else gets the
// cost-efficient standard tier.
func (p Policy) SelectModel(reliability float64) summarize.Tier {
	if reliability > p.ReliabilityThreshold {
		return summarize.TierPremium
	}
	return summarize.TierStandard
}

// Accept reports whether a provider quality score clears the acceptance
// threshold. The boundary itself is accepted.
func (p Policy) Accept(quality float64) bool {
	return quality >= p.QualityThreshold
}
