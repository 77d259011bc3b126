package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealerops/rentd/config"
	"github.com/dealerops/rentd/internal/core"
	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/observability/statsd"
	"github.com/dealerops/rentd/internal/sync"
)

// TaskHandler runs one occurrence of a recurring task.
type TaskHandler func(ctx context.Context) error

// SchedulerServiceOptions groups dependencies for SchedulerService.
type SchedulerServiceOptions struct {
	Tasks        core.ScheduledTaskRepository
	Sync         *SyncService
	Reservations *ReservationService
	Cars         *CarService
	Config       config.SchedulerConfig
	SyncInterval time.Duration
	SyncEnabled  bool
	Metrics      statsd.Sink
	Logger       *slog.Logger
}

// SchedulerService claims due recurring tasks from the database and runs
// them. Claiming happens under an advisory lock plus FOR UPDATE SKIP LOCKED,
// so several nodes can tick concurrently without double-running a task.
type SchedulerService struct {
	tasks        core.ScheduledTaskRepository
	handlers     map[string]TaskHandler
	batchSize    int
	syncInterval time.Duration
	syncEnabled  bool
	metrics      statsd.Sink
	logger       *slog.Logger
}

// NewSchedulerService constructs a SchedulerService with the built-in task
// handlers wired up.
func NewSchedulerService(opts SchedulerServiceOptions) *SchedulerService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := opts.Config.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	s := &SchedulerService{
		tasks:        opts.Tasks,
		handlers:     make(map[string]TaskHandler),
		batchSize:    batchSize,
		syncInterval: opts.SyncInterval,
		syncEnabled:  opts.SyncEnabled,
		metrics:      opts.Metrics,
		logger:       logger.With("component", "scheduler"),
	}

	if opts.Sync != nil {
		s.handlers[model.TaskCloudSync] = func(ctx context.Context) error {
			err := opts.Sync.RunNow(ctx)
			if errors.Is(err, sync.ErrRunInProgress) {
				// Someone else beat us to it; the dirty rows are covered.
				return nil
			}
			return err
		}
	}
	if opts.Reservations != nil {
		s.handlers[model.TaskReservationRollover] = func(ctx context.Context) error {
			_, err := opts.Reservations.Rollover(ctx, time.Now().UTC())
			return err
		}
	}
	if opts.Cars != nil {
		s.handlers[model.TaskListingsCacheWarm] = func(ctx context.Context) error {
			return opts.Cars.WarmListings(ctx)
		}
	}
	return s
}

// RegisterHandler adds or replaces the handler for a task name.
func (s *SchedulerService) RegisterHandler(taskName string, h TaskHandler) {
	s.handlers[taskName] = h
}

// EnsureDefaultTasks registers the built-in recurring tasks, creating or
// updating their rows so configuration changes take effect on restart. The
// cloud sync task is removed when syncing is disabled.
func (s *SchedulerService) EnsureDefaultTasks(ctx context.Context) error {
	defaults := []struct {
		name     string
		interval time.Duration
		enabled  bool
	}{
		{model.TaskCloudSync, s.syncInterval, s.syncEnabled},
		{model.TaskReservationRollover, time.Hour, true},
		{model.TaskListingsCacheWarm, 10 * time.Minute, true},
	}

	for _, d := range defaults {
		if !d.enabled {
			if _, err := s.tasks.DeleteByTaskName(ctx, d.name); err != nil {
				return fmt.Errorf("remove disabled task %s: %w", d.name, err)
			}
			continue
		}
		if err := s.tasks.UpsertByTaskName(ctx, d.name, d.interval, nil); err != nil {
			return fmt.Errorf("register task %s: %w", d.name, err)
		}
	}
	return nil
}

// Tick claims due tasks and runs them. Claiming and stamping happen inside
// the advisory-locked transaction; the handlers run after commit so a slow
// task does not hold database locks.
func (s *SchedulerService) Tick(ctx context.Context, now time.Time) error {
	var claimed []model.ScheduledTask

	locked, err := s.tasks.TryWithTaskLock(ctx, "scheduler_tick", func(ctx context.Context, tx *sql.Tx) error {
		due, err := s.tasks.FindDueTx(ctx, tx, now, s.batchSize)
		if err != nil {
			return err
		}
		for _, task := range due {
			ok, err := s.tasks.MarkQueuedTx(ctx, tx, task.ID, now)
			if err != nil {
				return err
			}
			if ok {
				claimed = append(claimed, task)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("claim due tasks: %w", err)
	}
	if !locked || len(claimed) == 0 {
		return nil
	}

	for _, task := range claimed {
		s.runTask(ctx, task)
	}
	return nil
}

func (s *SchedulerService) runTask(ctx context.Context, task model.ScheduledTask) {
	handler, ok := s.handlers[task.TaskName]
	if !ok {
		s.logger.WarnContext(ctx, "no handler for scheduled task", "task", task.TaskName)
		return
	}

	started := time.Now()
	err := handler(ctx)
	elapsed := time.Since(started)

	result := "ok"
	if err != nil {
		result = "error"
		s.logger.ErrorContext(ctx, "scheduled task failed",
			"task", task.TaskName, "duration", elapsed, "error", err)
	} else {
		s.logger.InfoContext(ctx, "scheduled task completed",
			"task", task.TaskName, "duration", elapsed)
	}
	if s.metrics != nil {
		s.metrics.Count("scheduler.tasks", 1, map[string]string{"task": task.TaskName, "result": result})
		s.metrics.Timing("scheduler.task_duration", elapsed, map[string]string{"task": task.TaskName})
	}
}
