package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealerops/rentd/internal/core"
	"github.com/dealerops/rentd/internal/domain/model"
	oberrors "github.com/dealerops/rentd/internal/observability/errors"
	"github.com/dealerops/rentd/internal/observability/notify"
	"github.com/dealerops/rentd/internal/observability/statsd"
	"github.com/dealerops/rentd/internal/sync"
)

const (
	syncRunLockKey = "sync:run-lock"
	syncRunLockTTL = 30 * time.Minute
)

// SyncServiceOptions groups dependencies for SyncService.
type SyncServiceOptions struct {
	Engine *sync.Engine
	// Cache backs the cross-process run lock. May be nil for single-node
	// deployments; the engine still rejects concurrent runs in-process.
	Cache core.CacheRepository
	// Notifier receives a best-effort event when a run fails. May be nil.
	Notifier notify.Sink
	Metrics  statsd.Sink
	Logger   *slog.Logger
}

// SyncService runs the cloud sync engine behind a distributed lock and turns
// run outcomes into metrics and notifications.
type SyncService struct {
	engine   *sync.Engine
	cache    core.CacheRepository
	notifier notify.Sink
	metrics  statsd.Sink
	logger   *slog.Logger
}

// NewSyncService constructs a new SyncService.
func NewSyncService(opts SyncServiceOptions) *SyncService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		engine:   opts.Engine,
		cache:    opts.Cache,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "sync_service"),
	}
}

// RunNow executes one sync pass. Returns sync.ErrRunInProgress when another
// run holds the lock, locally or on another node.
func (s *SyncService) RunNow(ctx context.Context) error {
	unlock, err := s.acquireRunLock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	started := time.Now()
	err = s.engine.Run(ctx)
	s.observeRun(ctx, started, err)
	return err
}

// TriggerAsync starts a sync pass in the background and reports whether one
// was started. Callers follow along via Status or WaitForChange.
func (s *SyncService) TriggerAsync(ctx context.Context) (bool, error) {
	unlock, err := s.acquireRunLock(ctx)
	if err != nil {
		if err == sync.ErrRunInProgress {
			return false, nil
		}
		return false, err
	}

	go func() {
		defer unlock()
		// Detached from the request: the run outlives the HTTP call.
		runCtx := context.WithoutCancel(ctx)
		started := time.Now()
		err := s.engine.Run(runCtx)
		s.observeRun(runCtx, started, err)
	}()
	return true, nil
}

// Status returns the progress record of the current or last run.
func (s *SyncService) Status() model.SyncProgress {
	return s.engine.Tracker().Snapshot()
}

// Running reports whether a run is active in this process.
func (s *SyncService) Running() bool {
	return s.engine.Running()
}

// WaitForChange blocks until the progress record changes or ctx expires, then
// returns the latest snapshot. The bool reports whether a change was seen.
func (s *SyncService) WaitForChange(ctx context.Context) (model.SyncProgress, bool) {
	unsub, ch := s.engine.Tracker().Subscribe()
	defer unsub()

	select {
	case <-ch:
		return s.engine.Tracker().Snapshot(), true
	case <-ctx.Done():
		return s.engine.Tracker().Snapshot(), false
	}
}

// acquireRunLock takes the cross-process run lock. The local engine flag
// already covers the single-process case; the cache lock covers multiple
// nodes pointed at the same database.
func (s *SyncService) acquireRunLock(ctx context.Context) (func(), error) {
	if s.engine.Running() {
		return nil, sync.ErrRunInProgress
	}
	if s.cache == nil {
		return func() {}, nil
	}

	ok, err := s.cache.SetIfNotExists(ctx, syncRunLockKey, []byte("1"), syncRunLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync run lock: %w", err)
	}
	if !ok {
		return nil, sync.ErrRunInProgress
	}
	return func() {
		if _, err := s.cache.Delete(context.WithoutCancel(ctx), syncRunLockKey); err != nil {
			s.logger.Warn("failed to release sync run lock", "error", err)
		}
	}, nil
}

func (s *SyncService) observeRun(ctx context.Context, started time.Time, err error) {
	elapsed := time.Since(started)
	if err == nil {
		if s.metrics != nil {
			s.metrics.Count("sync.runs", 1, map[string]string{"result": "ok"})
			s.metrics.Timing("sync.run_duration", elapsed, nil)
		}
		return
	}

	class := oberrors.Classify(err)
	if s.metrics != nil {
		s.metrics.Count("sync.runs", 1, map[string]string{"result": "error", "error": class})
		s.metrics.Timing("sync.run_duration", elapsed, nil)
	}
	s.logger.ErrorContext(ctx, "sync run failed", "error", err, "error_class", class)

	if s.notifier == nil {
		return
	}
	progress := s.engine.Tracker().Snapshot()
	event := notify.Event{
		Kind:       notify.KindSyncFailure,
		Title:      "Cloud sync run failed",
		Error:      err.Error(),
		ErrorClass: class,
		OccurredAt: time.Now().UTC(),
		Metadata: map[string]string{
			"table":     progress.Table,
			"processed": fmt.Sprintf("%d/%d", progress.Processed, progress.Total),
		},
	}
	if sendErr := s.notifier.Send(ctx, event); sendErr != nil {
		s.logger.Warn("sync failure notification failed", "error", sendErr)
	}
}
