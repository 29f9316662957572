package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prensa-app/prensa/internal/models"
)

// SourceResolver finds or creates the display-source record for an item's
// originating feed. Lookup is by exact name first, then by the feed's
// registered site URL; article-level domains are not consulted because
// syndication and AMP mirrors make them unreliable. The two-key lookup keeps
// a publisher from splitting into duplicate records when either key drifts;
// the store's unique constraints are the final guard under concurrency.
type SourceResolver struct {
	sources SourceRepository
	logger  *slog.Logger
}

// NewSourceResolver creates a resolver over the given source store.
func NewSourceResolver(sources SourceRepository, logger *slog.Logger) *SourceResolver {
	return &SourceResolver{sources: sources, logger: logger}
}

// Resolve returns the source record for a feed, creating it when neither the
// name nor the site URL matches an existing record.
func (r *SourceResolver) Resolve(ctx context.Context, feed models.FeedInfo) (*models.SourceRecord, error) {
	record, err := r.sources.GetByName(ctx, feed.Name)
	if err != nil {
		return nil, fmt.Errorf("source lookup by name %q: %w", feed.Name, err)
	}
	if record != nil {
		return record, nil
	}

	record, err = r.sources.GetBySiteURL(ctx, feed.SiteURL)
	if err != nil {
		return nil, fmt.Errorf("source lookup by url %q: %w", feed.SiteURL, err)
	}
	if record != nil {
		return record, nil
	}

	created, err := r.sources.Create(ctx, models.SourceRecord{
		Name:        feed.Name,
		SiteURL:     feed.SiteURL,
		LogoURL:     feed.LogoURL,
		Language:    feed.Language,
		Reliability: feed.Reliability,
	})
	if err != nil {
		return nil, fmt.Errorf("source create for %q: %w", feed.Name, err)
	}

	r.logger.Info("created source record",
		"source_id", created.ID,
		"name", created.Name,
		"site_url", created.SiteURL)

	return created, nil
}
