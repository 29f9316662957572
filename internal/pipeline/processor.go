package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prensa-app/prensa/internal/config"
	"github.com/prensa-app/prensa/internal/metrics"
	"github.com/prensa-app/prensa/internal/models"
	"github.com/prensa-app/prensa/internal/summarize"
)

// Processor drives claimed items through the per-item lifecycle: validate,
// summarize under the selected model tier, gate on quality, resolve source
// and topics, create the story idempotently, and record the outcome. Items
// are processed sequentially with paced provider calls; one item's failure
// never aborts the batch.
type Processor struct {
	items      ItemRepository
	stories    StoryRepository
	procErrors ErrorRepository
	sources    *SourceResolver
	topics     *TopicResolver
	summarizer summarize.Summarizer
	policy     Policy
	pacer      Pacer
	cfg        config.PipelineConfig
	collector  *metrics.PipelineCollector
	logger     *slog.Logger
}

// NewProcessor wires a processor from its collaborators. collector may be nil.
func NewProcessor(
	items ItemRepository,
	sources SourceRepository,
	topics TopicRepository,
	stories StoryRepository,
	procErrors ErrorRepository,
	summarizer summarize.Summarizer,
	pacer Pacer,
	cfg config.PipelineConfig,
	collector *metrics.PipelineCollector,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		items:      items,
		stories:    stories,
		procErrors: procErrors,
		sources:    NewSourceResolver(sources, logger),
		topics:     NewTopicResolver(topics, logger),
		summarizer: summarizer,
		policy: Policy{
			ReliabilityThreshold: cfg.ReliabilityThreshold,
			QualityThreshold:     cfg.QualityThreshold,
		},
		pacer:     pacer,
		cfg:       cfg,
		collector: collector,
		logger:    logger,
	}
}

// RunSummary is the sole return value of a run, used for operational
// visibility. It is not an error channel.
type RunSummary struct {
	Total             int                    `json:"total"`
	Succeeded         int                    `json:"succeeded"`
	Rejected          int                    `json:"rejected"`
	Failed            int                    `json:"failed"`
	DuplicatesSkipped int                    `json:"duplicates_skipped"`
	TierCounts        map[summarize.Tier]int `json:"tier_counts"`
	StartedAt         time.Time              `json:"started_at"`
	Duration          time.Duration          `json:"duration_ns"`
}

// itemOutcome is the result of processing a single item.
type itemOutcome struct {
	status    models.ItemStatus
	tier      summarize.Tier
	calledAPI bool
	duplicate bool
}

// Run claims and processes one batch. The requested limit is clamped to
// [1, MaxBatchSize], defaulting when non-positive. A claim failure aborts the
// run; everything after that is per-item and only shapes the summary.
func (p *Processor) Run(ctx context.Context, limit int) (*RunSummary, error) {
	limit = p.clampLimit(limit)
	start := time.Now()

	claimed, err := p.items.Claim(ctx, limit, p.cfg.MaxRetries, p.cfg.StaleClaimAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to claim items: %w", err)
	}

	p.logger.Info("ingestion run starting", "claimed", len(claimed), "limit", limit)

	summary := &RunSummary{
		TierCounts: make(map[summarize.Tier]int),
		StartedAt:  start,
	}

	for i := range claimed {
		if ctx.Err() != nil {
			p.logger.Warn("ingestion run interrupted", "processed", summary.Total, "claimed", len(claimed))
			break
		}

		if err := p.pacer.Wait(ctx); err != nil {
			break
		}

		item := claimed[i]
		outcome := p.processItem(ctx, &item)

		summary.Total++
		if outcome.calledAPI {
			summary.TierCounts[outcome.tier]++
			p.collector.TierUsed(string(outcome.tier))
		}
		switch {
		case outcome.duplicate:
			summary.Succeeded++
			summary.DuplicatesSkipped++
			p.collector.ItemOutcome("duplicate")
		case outcome.status == models.ItemStatusProcessed:
			summary.Succeeded++
			p.collector.ItemOutcome("processed")
		case outcome.status == models.ItemStatusRejected:
			summary.Rejected++
			p.collector.ItemOutcome("rejected")
		default:
			summary.Failed++
			p.collector.ItemOutcome("failed")
		}
	}

	summary.Duration = time.Since(start)
	p.collector.RunCompleted(summary.Duration)
	p.refreshExhaustedGauge(ctx)

	p.logger.Info("ingestion run complete",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"rejected", summary.Rejected,
		"failed", summary.Failed,
		"duplicates_skipped", summary.DuplicatesSkipped,
		"duration_ms", summary.Duration.Milliseconds())

	return summary, nil
}

// processItem runs one item through the lifecycle. All errors are recorded on
// the item and absorbed here.
func (p *Processor) processItem(ctx context.Context, item *models.RawItem) itemOutcome {
	log := p.logger.With("item_id", item.ID, "url", item.URL)

	body := item.BodyText()
	if len(body) < p.cfg.MinContentLength {
		reason := "content too short"
		if err := p.items.MarkRejected(ctx, item.ID, reason); err != nil {
			log.Error("failed to mark item rejected", "error", err)
		}
		log.Info("item rejected", "reason", reason, "body_chars", len(body))
		return itemOutcome{status: models.ItemStatusRejected}
	}

	tier := p.policy.SelectModel(item.Feed.Reliability)

	result, err := p.summarizer.Summarize(ctx, summarize.Request{
		Title:    item.Title,
		Body:     body,
		Language: item.Feed.Language,
		Tier:     tier,
	})
	if err != nil {
		p.failItem(ctx, item, models.StageSummarize, err)
		return itemOutcome{status: models.ItemStatusFailed, tier: tier, calledAPI: true}
	}

	if !p.policy.Accept(result.QualityScore) {
		reason := fmt.Sprintf("quality score %.2f below threshold %.2f", result.QualityScore, p.cfg.QualityThreshold)
		if err := p.items.MarkRejected(ctx, item.ID, reason); err != nil {
			log.Error("failed to mark item rejected", "error", err)
		}
		log.Info("item rejected", "reason", reason, "tier", tier)
		return itemOutcome{status: models.ItemStatusRejected, tier: tier, calledAPI: true}
	}

	source, err := p.sources.Resolve(ctx, item.Feed)
	if err != nil {
		p.failItem(ctx, item, models.StageStore, err)
		return itemOutcome{status: models.ItemStatusFailed, tier: tier, calledAPI: true}
	}

	topicIDs, err := p.topics.Resolve(ctx, result.TopicTags, item.Feed.CuratorTopicIDs)
	if err != nil {
		p.failItem(ctx, item, models.StageStore, err)
		return itemOutcome{status: models.ItemStatusFailed, tier: tier, calledAPI: true}
	}

	existing, err := p.stories.GetBySourceAndURL(ctx, source.ID, item.URL)
	if err != nil {
		p.failItem(ctx, item, models.StageStore, err)
		return itemOutcome{status: models.ItemStatusFailed, tier: tier, calledAPI: true}
	}
	if existing != nil {
		if err := p.items.MarkProcessed(ctx, item.ID, existing.ID); err != nil {
			log.Error("failed to mark item processed", "error", err)
		}
		log.Info("story already exists, skipping duplicate", "story_id", existing.ID)
		return itemOutcome{status: models.ItemStatusProcessed, tier: tier, calledAPI: true, duplicate: true}
	}

	story, err := p.stories.Create(ctx, models.Story{
		SourceID:     source.ID,
		OriginalURL:  item.URL,
		TitleEn:      result.TitleEn,
		TitleEs:      result.TitleEs,
		SummaryEn:    result.SummaryEn,
		SummaryEs:    result.SummaryEs,
		RationaleEn:  result.RationaleEn,
		RationaleEs:  result.RationaleEs,
		QualityScore: result.QualityScore,
		TopicIDs:     topicIDs,
		ImageURL:     item.ImageURL,
		PublishedAt:  item.EffectivePublishedAt(),
		Approved:     true,
	})
	if err != nil {
		p.failItem(ctx, item, models.StageStore, err)
		return itemOutcome{status: models.ItemStatusFailed, tier: tier, calledAPI: true}
	}

	if err := p.items.MarkProcessed(ctx, item.ID, story.ID); err != nil {
		log.Error("failed to mark item processed", "error", err)
	}
	log.Info("story created",
		"story_id", story.ID,
		"source_id", source.ID,
		"quality", result.QualityScore,
		"topics", len(topicIDs),
		"tier", tier)

	return itemOutcome{status: models.ItemStatusProcessed, tier: tier, calledAPI: true}
}

// failItem records a transient failure on the item and, when the retry budget
// is now spent, writes a dead-letter entry so operators can see the item
// before selection starves it.
func (p *Processor) failItem(ctx context.Context, item *models.RawItem, stage string, cause error) {
	p.logger.Error("item processing failed",
		"item_id", item.ID,
		"url", item.URL,
		"stage", stage,
		"retry_count", item.RetryCount+1,
		"error", cause)

	if err := p.items.MarkFailed(ctx, item.ID, cause.Error()); err != nil {
		p.logger.Error("failed to mark item failed", "item_id", item.ID, "error", err)
		return
	}
	item.RetryCount++

	if item.RetryCount >= p.cfg.MaxRetries {
		procErr := models.ProcessingError{
			ItemID:     item.ID,
			URL:        item.URL,
			Stage:      stage,
			ErrorMsg:   cause.Error(),
			RetryCount: item.RetryCount,
		}
		if err := p.procErrors.Store(ctx, procErr); err != nil {
			p.logger.Error("failed to record processing error", "item_id", item.ID, "error", err)
		}
	}
}

// refreshExhaustedGauge updates the permanently-failed metric after a run.
func (p *Processor) refreshExhaustedGauge(ctx context.Context) {
	if p.collector == nil {
		return
	}
	count, err := p.items.CountExhausted(ctx, p.cfg.MaxRetries)
	if err != nil {
		p.logger.Warn("failed to count exhausted items", "error", err)
		return
	}
	p.collector.SetExhausted(count)
}

// clampLimit bounds a requested batch size to [1, MaxBatchSize], using the
// configured default when the request is absent or invalid.
func (p *Processor) clampLimit(limit int) int {
	if limit <= 0 {
		limit = p.cfg.DefaultBatchSize
	}
	if limit > p.cfg.MaxBatchSize {
		limit = p.cfg.MaxBatchSize
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}
