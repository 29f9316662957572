package scheduler

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prensa-app/prensa/internal/pipeline"
)

type countingRunner struct {
	calls atomic.Int32
}

func (c *countingRunner) Run(ctx context.Context, limit int) (*pipeline.RunSummary, error) {
	c.calls.Add(1)
	return &pipeline.RunSummary{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestSchedulerRunsImmediatelyAndOnTick(t *testing.T) {
	runner := &countingRunner{}
	s := NewPipelineScheduler(runner, 20*time.Millisecond, 25, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(70 * time.Millisecond)
	cancel()
	<-done

	// One immediate run plus at least two ticks in 70ms at a 20ms interval.
	if n := runner.calls.Load(); n < 3 {
		t.Errorf("expected at least 3 runs, got %d", n)
	}
}

func TestSchedulerStop(t *testing.T) {
	runner := &countingRunner{}
	s := NewPipelineScheduler(runner, time.Hour, 25, testLogger())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	if n := runner.calls.Load(); n != 1 {
		t.Errorf("expected exactly the immediate run, got %d", n)
	}
}
