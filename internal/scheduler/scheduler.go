// Package scheduler owns the long-running loop that triggers pipeline runs
// on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/dkalra/jobsieve/internal/pipeline"
)

// Pipeline is the run entry point the scheduler drives.
type Pipeline interface {
	Run(ctx context.Context) pipeline.RunResult
}

// Scheduler ticks on an interval and executes one full pipeline run per tick.
type Scheduler struct {
	pipeline Pipeline
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that runs the pipeline at the given interval.
func NewScheduler(p Pipeline, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		pipeline: p,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the loop. It runs one immediate cycle, then ticks on the
// configured interval. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval.String())

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res := s.pipeline.Run(ctx)
	if len(res.Errors) > 0 {
		s.logger.Error("pipeline run finished with errors",
			"errors", len(res.Errors),
			"first", res.Errors[0],
		)
	}
}
