package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkalra/jobsieve/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingPipeline struct {
	calls atomic.Int32
	errs  []error
}

func (p *countingPipeline) Run(_ context.Context) pipeline.RunResult {
	p.calls.Add(1)
	return pipeline.RunResult{Errors: p.errs}
}

func TestRun_ImmediateCycleThenTicks(t *testing.T) {
	p := &countingPipeline{}
	s := NewScheduler(p, 50*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	// Allow time for the immediate run plus at least one tick.
	time.Sleep(130 * time.Millisecond)
	cancel()
	<-done

	if got := p.calls.Load(); got < 2 {
		t.Errorf("pipeline runs = %d, want >= 2 (immediate + ticked)", got)
	}
}

func TestRun_CancelReturnsPromptly(t *testing.T) {
	p := &countingPipeline{}
	s := NewScheduler(p, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return within 2s after cancel")
	}

	if got := p.calls.Load(); got != 1 {
		t.Errorf("pipeline runs = %d, want exactly the immediate run", got)
	}
}

func TestRun_ErrorsDoNotStopTheLoop(t *testing.T) {
	p := &countingPipeline{errs: []error{errors.New("feed down")}}
	s := NewScheduler(p, 40*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	time.Sleep(110 * time.Millisecond)
	cancel()
	<-done

	if got := p.calls.Load(); got < 2 {
		t.Errorf("pipeline runs = %d, want the loop to continue past errors", got)
	}
}
