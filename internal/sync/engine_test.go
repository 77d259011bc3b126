package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/rentd/internal/domain/model"
)

// fakeSource keeps dirty rows in memory per table.
type fakeSource struct {
	mu    stdsync.Mutex
	dirty map[string][]model.SyncDocument
}

func newFakeSource() *fakeSource {
	return &fakeSource{dirty: make(map[string][]model.SyncDocument)}
}

func (s *fakeSource) add(table, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[table] = append(s.dirty[table], model.SyncDocument{
		ID:   id,
		Data: map[string]any{"id": id},
	})
}

func (s *fakeSource) CountDirty(_ context.Context, table string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty[table]), nil
}

func (s *fakeSource) ListDirty(_ context.Context, table string, limit int) ([]model.SyncDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.dirty[table]
	if len(docs) > limit {
		docs = docs[:limit]
	}
	out := make([]model.SyncDocument, len(docs))
	copy(out, docs)
	return out, nil
}

func (s *fakeSource) ClearDirty(_ context.Context, table string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cleared := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		cleared[id] = struct{}{}
	}
	remaining := s.dirty[table][:0]
	for _, doc := range s.dirty[table] {
		if _, ok := cleared[doc.ID]; !ok {
			remaining = append(remaining, doc)
		}
	}
	s.dirty[table] = remaining
	return nil
}

// fakeStore records uploads in order and can fail on a chosen document.
type fakeStore struct {
	mu      stdsync.Mutex
	puts    []string
	failOn  string
	failErr error
	gate    chan struct{}
}

func (s *fakeStore) Put(ctx context.Context, collection, id string, _ map[string]any) error {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	key := collection + "/" + id
	if s.failOn != "" && key == s.failOn {
		return s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, key)
	return nil
}

func newTestEngine(t *testing.T, source Source, store DocumentStore, batchSize int) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineOptions{
		Source:    source,
		Store:     store,
		BatchSize: batchSize,
	})
	require.NoError(t, err)
	return engine
}

func TestEngineRunUploadsInTableOrder(t *testing.T) {
	source := newFakeSource()
	source.add("payments", "p1")
	source.add("customers", "c1")
	source.add("customers", "c2")
	source.add("cars", "v1")

	store := &fakeStore{}
	engine := newTestEngine(t, source, store, 100)

	require.NoError(t, engine.Run(context.Background()))

	assert.Equal(t, []string{"customers/c1", "customers/c2", "cars/v1", "payments/p1"}, store.puts)

	for _, table := range model.SyncedTables() {
		count, err := source.CountDirty(context.Background(), table)
		require.NoError(t, err)
		assert.Zero(t, count, "table %s should have no dirty rows left", table)
	}

	progress := engine.Tracker().Snapshot()
	assert.False(t, progress.Running)
	assert.False(t, progress.Errored)
	assert.Equal(t, 4, progress.Processed)
	assert.Equal(t, 4, progress.Total)
	assert.Equal(t, len(model.SyncedTables()), progress.TableCount)
}

func TestEngineRunDrainsLargeTablesInBatches(t *testing.T) {
	source := newFakeSource()
	for i := range 7 {
		source.add("customers", fmt.Sprintf("c%d", i))
	}

	store := &fakeStore{}
	engine := newTestEngine(t, source, store, 3)

	require.NoError(t, engine.Run(context.Background()))
	assert.Len(t, store.puts, 7)

	count, err := source.CountDirty(context.Background(), "customers")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEngineRunAbortsOnUploadError(t *testing.T) {
	source := newFakeSource()
	source.add("customers", "c1")
	source.add("customers", "c2")
	source.add("cars", "v1")

	uploadErr := errors.New("store rejected document")
	store := &fakeStore{failOn: "customers/c2", failErr: uploadErr}
	engine := newTestEngine(t, source, store, 100)

	err := engine.Run(context.Background())
	require.ErrorIs(t, err, uploadErr)

	// c1 was confirmed before the failure, so its flag is cleared; c2 and
	// everything after the aborted table stay dirty for the next run.
	customers, cerr := source.CountDirty(context.Background(), "customers")
	require.NoError(t, cerr)
	assert.Equal(t, 1, customers)

	cars, verr := source.CountDirty(context.Background(), "cars")
	require.NoError(t, verr)
	assert.Equal(t, 1, cars)

	progress := engine.Tracker().Snapshot()
	assert.False(t, progress.Running)
	assert.True(t, progress.Errored)
	assert.Equal(t, "customers", progress.Table)
}

func TestEngineRejectsConcurrentRuns(t *testing.T) {
	source := newFakeSource()
	source.add("customers", "c1")

	gate := make(chan struct{})
	store := &fakeStore{gate: gate}
	engine := newTestEngine(t, source, store, 100)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- engine.Run(context.Background())
	}()

	// Wait for the first run to claim the engine.
	require.Eventually(t, engine.Running, time.Second, time.Millisecond)

	err := engine.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(gate)
	require.NoError(t, <-firstDone)
}

func TestTrackerSubscribeSignalsOnUpdates(t *testing.T) {
	tracker := NewTracker()
	unsub, ch := tracker.Subscribe()
	defer unsub()

	tracker.Begin(6, 10)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a progress notification")
	}

	progress := tracker.Snapshot()
	assert.True(t, progress.Running)
	assert.Equal(t, 10, progress.Total)
}

func TestTrackerUnsubscribeClosesChannel(t *testing.T) {
	tracker := NewTracker()
	unsub, ch := tracker.Subscribe()
	unsub()

	_, open := <-ch
	assert.False(t, open)
}
