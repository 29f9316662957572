package models

import "time"

// Story is the enriched, user-facing artifact produced from an accepted item.
// The (SourceID, OriginalURL) pair is unique: creating a story for a pair that
// already exists is a no-op returning the existing story.
type Story struct {
	ID           string    `json:"id"`
	SourceID     string    `json:"source_id"`
	OriginalURL  string    `json:"original_url"`
	TitleEn      string    `json:"title_en"`
	TitleEs      string    `json:"title_es"`
	SummaryEn    string    `json:"summary_en"`
	SummaryEs    string    `json:"summary_es"`
	RationaleEn  string    `json:"rationale_en"`
	RationaleEs  string    `json:"rationale_es"`
	QualityScore float64   `json:"quality_score"` // 0-1 scale from the summarization provider
	TopicIDs     []string  `json:"topic_ids"`
	ImageURL     string    `json:"image_url,omitempty"`
	PublishedAt  time.Time `json:"published_at"` // Never zero; see RawItem.EffectivePublishedAt
	Approved     bool      `json:"approved"`
	CreatedAt    time.Time `json:"created_at"`
}

// Topic is one entry of the canonical taxonomy stories are classified into.
type Topic struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	NameEn string `json:"name_en"`
	NameEs string `json:"name_es"`
}

// DefaultTopicSlug is substituted when neither AI tags nor curator tags
// resolve to any canonical topic, so every story stays discoverable.
const DefaultTopicSlug = "general"
