package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/prensa-app/prensa/internal/pipeline"
)

// Runner triggers pipeline runs. Implemented by pipeline.Processor.
type Runner interface {
	Run(ctx context.Context, limit int) (*pipeline.RunSummary, error)
}

// PipelineScheduler drives periodic pipeline runs. External cron hitting the
// trigger endpoint is the other way runs start; both paths share the atomic
// claim, so overlap is harmless.
type PipelineScheduler struct {
	runner   Runner
	interval time.Duration
	limit    int
	logger   *slog.Logger
	stopChan chan struct{}
}

// NewPipelineScheduler creates a scheduler running at the given interval with
// the given batch limit per run.
func NewPipelineScheduler(runner Runner, interval time.Duration, limit int, logger *slog.Logger) *PipelineScheduler {
	return &PipelineScheduler{
		runner:   runner,
		interval: interval,
		limit:    limit,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduler loop. It runs once immediately, then on every
// tick until the context is cancelled or Stop is called.
func (s *PipelineScheduler) Start(ctx context.Context) {
	s.logger.Info("starting pipeline scheduler", "interval", s.interval, "limit", s.limit)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.stopChan:
			s.logger.Info("pipeline scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("pipeline scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler.
func (s *PipelineScheduler) Stop() {
	close(s.stopChan)
}

func (s *PipelineScheduler) runOnce(ctx context.Context) {
	summary, err := s.runner.Run(ctx, s.limit)
	if err != nil {
		s.logger.Error("scheduled pipeline run failed", "error", err)
		return
	}

	if summary.Total == 0 {
		s.logger.Debug("scheduled run found no eligible items")
		return
	}

	s.logger.Info("scheduled pipeline run completed",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"rejected", summary.Rejected,
		"failed", summary.Failed,
		"duplicates_skipped", summary.DuplicatesSkipped,
		"duration", summary.Duration,
	)
}
