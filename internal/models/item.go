package models

import (
	"fmt"
	"time"
)

// RawItem represents a fetched article awaiting processing. The crawler writes
// items in status pending; the pipeline owns every transition after that.
type RawItem struct {
	ID          string     `json:"id"`
	Feed        FeedInfo   `json:"feed"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`     // Full scraped body, may be empty
	Description string     `json:"description"` // RSS description fallback
	ImageURL    string     `json:"image_url,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Status      ItemStatus `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   string     `json:"last_error,omitempty"`
	StoryID     string     `json:"story_id,omitempty"`   // Set once the item produced (or matched) a story
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"` // When a run claimed the item, for stale-claim recovery
	CreatedAt   time.Time  `json:"created_at"`
}

// FeedInfo is the originating feed's snapshot carried on each item. The site
// URL is the feed's registered site, not the article's own domain, which can
// be a syndication or AMP mirror.
type FeedInfo struct {
	Name            string   `json:"name"`
	SiteURL         string   `json:"site_url"`
	Language        string   `json:"language"`
	LogoURL         string   `json:"logo_url,omitempty"`
	Reliability     float64  `json:"reliability"` // 0-1 trust score, maintained by the crawler side
	CuratorTopicIDs []string `json:"curator_topic_ids,omitempty"` // Canonical topic ids assigned at feed registration
}

// ItemStatus is the processing state of a raw item.
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"    // Fetched, not yet claimed
	ItemStatusProcessing ItemStatus = "processing" // Claimed by a run
	ItemStatusProcessed  ItemStatus = "processed"  // Story created or matched
	ItemStatusRejected   ItemStatus = "rejected"   // Failed validation or quality gate, never retried
	ItemStatusFailed     ItemStatus = "failed"     // Transient failure, retryable while under the retry limit
	ItemStatusDuplicate  ItemStatus = "duplicate"  // Reserved for crawler-side dedup; terminal
)

// itemTransitions enumerates the allowed status transitions. Terminal states
// have no outgoing edges.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusPending:    {ItemStatusProcessing},
	ItemStatusProcessing: {ItemStatusProcessed, ItemStatusRejected, ItemStatusFailed},
	ItemStatusFailed:     {ItemStatusProcessing},
}

// CanTransition reports whether moving from s to next is a legal lifecycle step.
func (s ItemStatus) CanTransition(next ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change, bumping the retry counter
// on a failure transition. The counter never decreases.
func (i *RawItem) Transition(next ItemStatus, errMsg string) error {
	if !i.Status.CanTransition(next) {
		return fmt.Errorf("invalid item transition %s -> %s (item %s)", i.Status, next, i.ID)
	}
	if next == ItemStatusFailed {
		i.RetryCount++
	}
	i.Status = next
	i.LastError = errMsg
	return nil
}

// IsTerminal reports whether the item can never be selected again.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusProcessed || s == ItemStatusRejected || s == ItemStatusDuplicate
}

// BodyText resolves the text to summarize: full scraped content first, RSS
// description as fallback.
func (i *RawItem) BodyText() string {
	if i.Content != "" {
		return i.Content
	}
	return i.Description
}

// EffectivePublishedAt returns the publish time used for feed ordering. It
// never returns a zero time: item publish time, then fetch time, then now.
func (i *RawItem) EffectivePublishedAt() time.Time {
	if i.PublishedAt != nil && !i.PublishedAt.IsZero() {
		return *i.PublishedAt
	}
	if !i.FetchedAt.IsZero() {
		return i.FetchedAt
	}
	return time.Now()
}
