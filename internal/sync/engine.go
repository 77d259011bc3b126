package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"

	"github.com/dealerops/rentd/internal/domain/model"
)

// ErrRunInProgress is returned when a sync run is requested while one is active.
var ErrRunInProgress = errors.New("a sync run is already in progress")

// Source reads and clears dirty rows table by table.
type Source interface {
	CountDirty(ctx context.Context, table string) (int, error)
	ListDirty(ctx context.Context, table string, limit int) ([]model.SyncDocument, error)
	ClearDirty(ctx context.Context, table string, ids []string) error
}

// EngineOptions configures a sync Engine.
type EngineOptions struct {
	Source    Source
	Store     DocumentStore
	Tracker   *Tracker
	BatchSize int
	Logger    *slog.Logger
}

// Engine runs one sync pass: for each table in the fixed order, upload every
// dirty row and clear its flag once the store confirms the write. The first
// failed upload aborts the run; rows already confirmed stay clean, so the
// next run resumes where this one stopped. Rows changed mid-upload are dirty
// again afterwards and go out on the next run (at-least-once delivery).
type Engine struct {
	source    Source
	store     DocumentStore
	tracker   *Tracker
	batchSize int
	logger    *slog.Logger

	mu      stdsync.Mutex
	running bool
}

const defaultBatchSize = 100

// NewEngine creates a sync Engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Source == nil {
		return nil, errors.New("sync source is required")
	}
	if opts.Store == nil {
		return nil, errors.New("document store is required")
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = NewTracker()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		source:    opts.Source,
		store:     opts.Store,
		tracker:   tracker,
		batchSize: batchSize,
		logger:    logger.With("component", "sync"),
	}, nil
}

// Tracker exposes the progress tracker for status and long-poll endpoints.
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// Running reports whether a run is currently active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run executes one full sync pass. Only one run may be active at a time.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrRunInProgress
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	tables := model.SyncedTables()

	counts := make([]int, len(tables))
	total := 0
	for i, table := range tables {
		count, err := e.source.CountDirty(ctx, table)
		if err != nil {
			e.tracker.Fail(fmt.Sprintf("counting %s failed", table))
			return fmt.Errorf("count dirty rows in %s: %w", table, err)
		}
		counts[i] = count
		total += count
	}

	e.tracker.Begin(len(tables), total)
	e.logger.InfoContext(ctx, "sync run started", "tables", len(tables), "total", total)

	processed := 0
	for i, table := range tables {
		e.tracker.BeginTable(i, table, counts[i])

		done, err := e.syncTable(ctx, table, &processed)
		if err != nil {
			e.tracker.Fail(fmt.Sprintf("sync of %s failed: %v", table, err))
			e.logger.ErrorContext(ctx, "sync run aborted",
				"table", table, "processed", processed, "err", err)
			return err
		}
		e.logger.InfoContext(ctx, "table synced", "table", table, "rows", done)
	}

	e.tracker.Finish(fmt.Sprintf("synced %d rows", processed))
	e.logger.InfoContext(ctx, "sync run finished", "processed", processed)
	return nil
}

// syncTable drains one table's dirty rows in batches. Returns the number of
// rows uploaded from this table.
func (e *Engine) syncTable(ctx context.Context, table string, processed *int) (int, error) {
	done := 0
	for {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		docs, err := e.source.ListDirty(ctx, table, e.batchSize)
		if err != nil {
			return done, fmt.Errorf("list dirty rows in %s: %w", table, err)
		}
		if len(docs) == 0 {
			return done, nil
		}

		confirmed := make([]string, 0, len(docs))
		for _, doc := range docs {
			if err := e.store.Put(ctx, table, doc.ID, doc.Data); err != nil {
				// Flags already confirmed in this batch still need clearing.
				if clearErr := e.source.ClearDirty(ctx, table, confirmed); clearErr != nil {
					err = errors.Join(err, clearErr)
				}
				return done, fmt.Errorf("upload %s/%s: %w", table, doc.ID, err)
			}
			confirmed = append(confirmed, doc.ID)
			done++
			*processed++
			e.tracker.Item(done, *processed)
		}

		if err := e.source.ClearDirty(ctx, table, confirmed); err != nil {
			return done, fmt.Errorf("clear dirty flags in %s: %w", table, err)
		}

		if len(docs) < e.batchSize {
			return done, nil
		}
	}
}
