package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prensa-app/prensa/internal/models"
)

// TopicResolver maps free-text provider tags to canonical topic ids and
// merges them with curator-assigned ids. Curator ids are already canonical
// and are trusted as-is; they are never dropped, even when the provider
// disagrees or returns no tags at all.
type TopicResolver struct {
	topics TopicRepository
	logger *slog.Logger
}

// NewTopicResolver creates a resolver over the given taxonomy.
func NewTopicResolver(topics TopicRepository, logger *slog.Logger) *TopicResolver {
	return &TopicResolver{topics: topics, logger: logger}
}

// Resolve returns the deduplicated union of resolved provider tags and
// curator ids. Unknown tags are dropped and logged, not errors. An empty
// union resolves to the canonical "general" topic, so the result is never
// empty.
func (r *TopicResolver) Resolve(ctx context.Context, aiTags []string, curatorIDs []string) ([]string, error) {
	seen := make(map[string]struct{})
	resolved := make([]string, 0, len(aiTags)+len(curatorIDs))

	add := func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		resolved = append(resolved, id)
	}

	for _, id := range curatorIDs {
		if id != "" {
			add(id)
		}
	}

	for _, tag := range aiTags {
		slug := Slugify(tag)
		if slug == "" {
			continue
		}
		topic, err := r.topics.GetBySlug(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("topic lookup for %q: %w", slug, err)
		}
		if topic == nil {
			r.logger.Debug("dropping unknown topic tag", "tag", tag, "slug", slug)
			continue
		}
		add(topic.ID)
	}

	if len(resolved) == 0 {
		general, err := r.topics.GetBySlug(ctx, models.DefaultTopicSlug)
		if err != nil {
			return nil, fmt.Errorf("default topic lookup: %w", err)
		}
		if general == nil {
			return nil, fmt.Errorf("default topic %q missing from taxonomy", models.DefaultTopicSlug)
		}
		resolved = append(resolved, general.ID)
	}

	return resolved, nil
}

// Slugify normalizes a free-text tag into taxonomy slug form: lowercase,
// spaces and underscores collapsed to hyphens.
func Slugify(tag string) string {
	slug := strings.ToLower(strings.TrimSpace(tag))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	return strings.Trim(slug, "-")
}
