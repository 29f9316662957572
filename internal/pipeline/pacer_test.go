package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestIntervalPacer_SpacesWaits(t *testing.T) {
	pacer := NewIntervalPacer(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := pacer.Wait(ctx); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	elapsed := time.Since(start)

	// First wait is immediate, the next two are spaced by the interval.
	if elapsed < 40*time.Millisecond {
		t.Errorf("three waits took %v, want >= 40ms", elapsed)
	}
}

func TestIntervalPacer_ZeroIntervalIsNop(t *testing.T) {
	pacer := NewIntervalPacer(0)
	if _, ok := pacer.(NopPacer); !ok {
		t.Errorf("zero interval should yield NopPacer, got %T", pacer)
	}
}

func TestNopPacer_RespectsContext(t *testing.T) {
	if err := (NopPacer{}).Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (NopPacer{}).Wait(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestIntervalPacer_CancelledContext(t *testing.T) {
	pacer := NewIntervalPacer(time.Hour)
	ctx := context.Background()

	// Burn the burst token so the next wait would block.
	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := pacer.Wait(cancelCtx); err == nil {
		t.Error("expected error when context expires before the interval")
	}
}
