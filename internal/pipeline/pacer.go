package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces provider-bound work to respect the summarization provider's
// rate limits. It is injected so the pacing contract is independent of the
// batch loop, and so tests can run with no delay.
type Pacer interface {
	Wait(ctx context.Context) error
}

type intervalPacer struct {
	limiter *rate.Limiter
}

// NewIntervalPacer returns a pacer that admits one item per interval. The
// first wait is immediate; subsequent waits are spaced by the interval. A
// non-positive interval yields a no-op pacer.
func NewIntervalPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return NopPacer{}
	}
	return &intervalPacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *intervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NopPacer never delays. Used in tests and when pacing is disabled.
type NopPacer struct{}

// Wait returns immediately unless the context is already done.
func (NopPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}
