package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prensa-app/prensa/internal/models"
)

// ItemRepository is the pipeline's view of the raw item queue.
type ItemRepository interface {
	// Claim atomically transitions up to limit eligible items to processing
	// and returns them, ordered by fetch time ascending. Eligible items are
	// pending, failed under the retry limit, or processing with a claim older
	// than staleAfter (a crashed run). Items another run claims concurrently
	// are never returned twice.
	Claim(ctx context.Context, limit, maxRetries int, staleAfter time.Duration) ([]models.RawItem, error)

	// MarkProcessed finalizes an item with a link to its story.
	MarkProcessed(ctx context.Context, id, storyID string) error

	// MarkRejected terminally rejects an item, recording the reason.
	MarkRejected(ctx context.Context, id, reason string) error

	// MarkFailed records a transient failure and increments the retry count.
	MarkFailed(ctx context.Context, id, errMsg string) error

	// CountByStatus returns item counts grouped by status.
	CountByStatus(ctx context.Context) (map[models.ItemStatus]int, error)

	// ListExhausted returns failed items at or over the retry limit. These are
	// never claimed again; this listing is the operator's only view of them.
	ListExhausted(ctx context.Context, maxRetries, limit int) ([]models.RawItem, error)

	// CountExhausted returns how many items are out of retries.
	CountExhausted(ctx context.Context, maxRetries int) (int, error)
}

// SourceRepository stores de-duplicated publisher records.
type SourceRepository interface {
	GetByName(ctx context.Context, name string) (*models.SourceRecord, error)
	GetBySiteURL(ctx context.Context, siteURL string) (*models.SourceRecord, error)
	Create(ctx context.Context, record models.SourceRecord) (*models.SourceRecord, error)
}

// TopicRepository reads the canonical topic taxonomy.
type TopicRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.Topic, error)
}

// StoryRepository stores finished stories.
type StoryRepository interface {
	// GetBySourceAndURL returns the story for a (source, original url) pair,
	// or nil when none exists.
	GetBySourceAndURL(ctx context.Context, sourceID, originalURL string) (*models.Story, error)
	Create(ctx context.Context, story models.Story) (*models.Story, error)
}

// ErrorRepository is the dead-letter ledger for processing failures.
type ErrorRepository interface {
	Store(ctx context.Context, procErr models.ProcessingError) error
	List(ctx context.Context, limit int, unresolvedOnly bool) ([]models.ProcessingError, error)
	CountUnresolved(ctx context.Context) (int, error)
	MarkResolved(ctx context.Context, id string) error
}

// MemoryItemRepository implements ItemRepository in memory for tests and
// local development. Claim semantics match the Postgres implementation.
type MemoryItemRepository struct {
	mu    sync.Mutex
	items map[string]models.RawItem
}

// NewMemoryItemRepository creates an empty in-memory item repository.
func NewMemoryItemRepository() *MemoryItemRepository {
	return &MemoryItemRepository{items: make(map[string]models.RawItem)}
}

// Add seeds an item, defaulting status to pending.
func (r *MemoryItemRepository) Add(item models.RawItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.Status == "" {
		item.Status = models.ItemStatusPending
	}
	r.items[item.ID] = item
}

// Insert stores a new item, keeping the first write when the id already
// exists. Matches the Postgres ON CONFLICT DO NOTHING semantics.
func (r *MemoryItemRepository) Insert(ctx context.Context, item models.RawItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[item.ID]; exists {
		return nil
	}
	if item.Status == "" {
		item.Status = models.ItemStatusPending
	}
	r.items[item.ID] = item
	return nil
}

// Get returns a copy of an item by id.
func (r *MemoryItemRepository) Get(id string) (models.RawItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	return item, ok
}

// Claim selects and marks eligible items, oldest first.
func (r *MemoryItemRepository) Claim(ctx context.Context, limit, maxRetries int, staleAfter time.Duration) ([]models.RawItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	eligible := make([]models.RawItem, 0)
	for _, item := range r.items {
		if item.RetryCount >= maxRetries {
			continue
		}
		switch item.Status {
		case models.ItemStatusPending, models.ItemStatusFailed:
			eligible = append(eligible, item)
		case models.ItemStatusProcessing:
			if item.ClaimedAt != nil && now.Sub(*item.ClaimedAt) > staleAfter {
				eligible = append(eligible, item)
			}
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].FetchedAt.Before(eligible[j].FetchedAt)
	})
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	claimed := make([]models.RawItem, 0, len(eligible))
	for _, item := range eligible {
		item.Status = models.ItemStatusProcessing
		item.ClaimedAt = &now
		r.items[item.ID] = item
		claimed = append(claimed, item)
	}

	return claimed, nil
}

// MarkProcessed finalizes an item.
func (r *MemoryItemRepository) MarkProcessed(ctx context.Context, id, storyID string) error {
	return r.finish(id, models.ItemStatusProcessed, "", storyID)
}

// MarkRejected terminally rejects an item.
func (r *MemoryItemRepository) MarkRejected(ctx context.Context, id, reason string) error {
	return r.finish(id, models.ItemStatusRejected, reason, "")
}

// MarkFailed records a transient failure.
func (r *MemoryItemRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	return r.finish(id, models.ItemStatusFailed, errMsg, "")
}

func (r *MemoryItemRepository) finish(id string, status models.ItemStatus, errMsg, storyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil
	}
	if err := item.Transition(status, errMsg); err != nil {
		return err
	}
	if storyID != "" {
		item.StoryID = storyID
	}
	item.ClaimedAt = nil
	r.items[id] = item
	return nil
}

// CountByStatus returns item counts grouped by status.
func (r *MemoryItemRepository) CountByStatus(ctx context.Context) (map[models.ItemStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[models.ItemStatus]int)
	for _, item := range r.items {
		counts[item.Status]++
	}
	return counts, nil
}

// ListExhausted returns failed items that are out of retries.
func (r *MemoryItemRepository) ListExhausted(ctx context.Context, maxRetries, limit int) ([]models.RawItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exhausted := make([]models.RawItem, 0)
	for _, item := range r.items {
		if item.Status == models.ItemStatusFailed && item.RetryCount >= maxRetries {
			exhausted = append(exhausted, item)
		}
	}
	sort.Slice(exhausted, func(i, j int) bool {
		return exhausted[i].FetchedAt.Before(exhausted[j].FetchedAt)
	})
	if len(exhausted) > limit {
		exhausted = exhausted[:limit]
	}
	return exhausted, nil
}

// CountExhausted returns how many items are out of retries.
func (r *MemoryItemRepository) CountExhausted(ctx context.Context, maxRetries int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, item := range r.items {
		if item.Status == models.ItemStatusFailed && item.RetryCount >= maxRetries {
			count++
		}
	}
	return count, nil
}

// MemorySourceRepository implements SourceRepository in memory.
type MemorySourceRepository struct {
	mu      sync.Mutex
	records map[string]models.SourceRecord
}

// NewMemorySourceRepository creates an empty in-memory source repository.
func NewMemorySourceRepository() *MemorySourceRepository {
	return &MemorySourceRepository{records: make(map[string]models.SourceRecord)}
}

// GetByName returns the record with an exact display-name match.
func (r *MemorySourceRepository) GetByName(ctx context.Context, name string) (*models.SourceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Name == name {
			return &rec, nil
		}
	}
	return nil, nil
}

// GetBySiteURL returns the record with an exact site URL match.
func (r *MemorySourceRepository) GetBySiteURL(ctx context.Context, siteURL string) (*models.SourceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.SiteURL == siteURL {
			return &rec, nil
		}
	}
	return nil, nil
}

// Create inserts a new record, assigning an id when absent.
func (r *MemorySourceRepository) Create(ctx context.Context, record models.SourceRecord) (*models.SourceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	r.records[record.ID] = record
	return &record, nil
}

// List returns all records ordered by name.
func (r *MemorySourceRepository) List(ctx context.Context) ([]models.SourceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.SourceRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Count returns the number of stored records.
func (r *MemorySourceRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// MemoryTopicRepository implements TopicRepository in memory.
type MemoryTopicRepository struct {
	mu     sync.Mutex
	bySlug map[string]models.Topic
}

// NewMemoryTopicRepository creates a taxonomy from the given topics.
func NewMemoryTopicRepository(topics ...models.Topic) *MemoryTopicRepository {
	repo := &MemoryTopicRepository{bySlug: make(map[string]models.Topic)}
	for _, topic := range topics {
		repo.bySlug[topic.Slug] = topic
	}
	return repo
}

// GetBySlug returns the topic for a slug, or nil when unknown.
func (r *MemoryTopicRepository) GetBySlug(ctx context.Context, slug string) (*models.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	topic, ok := r.bySlug[slug]
	if !ok {
		return nil, nil
	}
	return &topic, nil
}

// List returns the taxonomy ordered by slug.
func (r *MemoryTopicRepository) List(ctx context.Context) ([]models.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Topic, 0, len(r.bySlug))
	for _, topic := range r.bySlug {
		out = append(out, topic)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// MemoryStoryRepository implements StoryRepository in memory.
type MemoryStoryRepository struct {
	mu      sync.Mutex
	stories map[string]models.Story
}

// NewMemoryStoryRepository creates an empty in-memory story repository.
func NewMemoryStoryRepository() *MemoryStoryRepository {
	return &MemoryStoryRepository{stories: make(map[string]models.Story)}
}

// GetBySourceAndURL returns the story for a (source, url) pair, or nil.
func (r *MemoryStoryRepository) GetBySourceAndURL(ctx context.Context, sourceID, originalURL string) (*models.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, story := range r.stories {
		if story.SourceID == sourceID && story.OriginalURL == originalURL {
			return &story, nil
		}
	}
	return nil, nil
}

// Create inserts a new story, assigning an id when absent.
func (r *MemoryStoryRepository) Create(ctx context.Context, story models.Story) (*models.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if story.ID == "" {
		story.ID = uuid.New().String()
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now()
	}
	r.stories[story.ID] = story
	return &story, nil
}

// ListRecent returns the newest stories by publish time.
func (r *MemoryStoryRepository) ListRecent(ctx context.Context, limit int) ([]models.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Story, 0, len(r.stories))
	for _, story := range r.stories {
		out = append(out, story)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored stories.
func (r *MemoryStoryRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stories)
}

// MemoryErrorRepository implements ErrorRepository in memory.
type MemoryErrorRepository struct {
	mu     sync.Mutex
	errors map[string]models.ProcessingError
}

// NewMemoryErrorRepository creates an empty in-memory error ledger.
func NewMemoryErrorRepository() *MemoryErrorRepository {
	return &MemoryErrorRepository{errors: make(map[string]models.ProcessingError)}
}

// Store saves a processing error, assigning an id when absent.
func (r *MemoryErrorRepository) Store(ctx context.Context, procErr models.ProcessingError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if procErr.ID == "" {
		procErr.ID = uuid.New().String()
	}
	if procErr.CreatedAt.IsZero() {
		procErr.CreatedAt = time.Now()
	}
	r.errors[procErr.ID] = procErr
	return nil
}

// List returns stored errors, newest first.
func (r *MemoryErrorRepository) List(ctx context.Context, limit int, unresolvedOnly bool) ([]models.ProcessingError, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.ProcessingError, 0, len(r.errors))
	for _, procErr := range r.errors {
		if unresolvedOnly && procErr.Resolved {
			continue
		}
		out = append(out, procErr)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountUnresolved returns the number of unresolved errors.
func (r *MemoryErrorRepository) CountUnresolved(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, procErr := range r.errors {
		if !procErr.Resolved {
			count++
		}
	}
	return count, nil
}

// MarkResolved flags an error as handled.
func (r *MemoryErrorRepository) MarkResolved(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	procErr, ok := r.errors[id]
	if !ok {
		return nil
	}
	now := time.Now()
	procErr.Resolved = true
	procErr.ResolvedAt = &now
	r.errors[id] = procErr
	return nil
}
