// Package scheduler provides an adapter for running the recurring task loop.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dealerops/rentd/internal/observability/statsd"
	"github.com/dealerops/rentd/internal/service"
)

// Runner drives the scheduler service tick loop at a fixed interval.
type Runner struct {
	scheduler *service.SchedulerService
	interval  time.Duration
	logger    *slog.Logger
	metrics   statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Scheduler *service.SchedulerService
	Interval  time.Duration
	Logger    *slog.Logger
	Metrics   statsd.Sink
}

// NewRunner creates a scheduler runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Scheduler == nil {
		return nil, errors.New("scheduler service is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Runner{
		scheduler: opts.Scheduler,
		interval:  opts.Interval,
		logger:    opts.Logger.With("component", "scheduler-runner"),
		metrics:   opts.Metrics,
	}, nil
}

// Run registers the default recurring tasks and ticks until the context is
// cancelled. Tick errors are logged, not fatal; the next tick retries.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.scheduler.EnsureDefaultTasks(ctx); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "scheduler runner started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "scheduler runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case now := <-ticker.C:
			start := time.Now()
			err := r.scheduler.Tick(ctx, now.UTC())
			r.emitTickMetrics(time.Since(start), err)
			if err != nil {
				r.logger.ErrorContext(ctx, "scheduler tick failed", "error", err)
			}
		}
	}
}

func (r *Runner) emitTickMetrics(elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	tags := map[string]string{"result": result}
	r.metrics.Count("scheduler.ticks", 1, tags)
	r.metrics.Timing("scheduler.tick_duration", elapsed, tags)
}
