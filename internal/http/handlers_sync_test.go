package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/service"
	"github.com/dealerops/rentd/internal/sync"
)

// blockingSource parks the first CountDirty call until release is closed,
// which keeps a run "in progress" for as long as the test needs.
type blockingSource struct {
	release chan struct{}
}

func (s *blockingSource) CountDirty(ctx context.Context, _ string) (int, error) {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 0, nil
}

func (s *blockingSource) ListDirty(_ context.Context, _ string, _ int) ([]model.SyncDocument, error) {
	return nil, nil
}

func (s *blockingSource) ClearDirty(_ context.Context, _ string, _ []string) error {
	return nil
}

type noopDocStore struct{}

func (noopDocStore) Put(_ context.Context, _, _ string, _ map[string]any) error { return nil }

func newSyncHandlers(t *testing.T, source sync.Source) (*SyncHandlers, *service.SyncService) {
	t.Helper()

	engine, err := sync.NewEngine(sync.EngineOptions{Source: source, Store: noopDocStore{}})
	require.NoError(t, err)
	svc := service.NewSyncService(service.SyncServiceOptions{Engine: engine})
	return &SyncHandlers{Svc: svc}, svc
}

func TestSyncStatusIdle(t *testing.T) {
	handlers, _ := newSyncHandlers(t, &blockingSource{})

	r := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	w := httptest.NewRecorder()
	handlers.Status(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var progress model.SyncProgress
	decodeBody(t, w, &progress)
	assert.False(t, progress.Running)
	assert.Zero(t, progress.Processed)
}

func TestSyncRunConflictsWhileRunning(t *testing.T) {
	release := make(chan struct{})
	handlers, svc := newSyncHandlers(t, &blockingSource{release: release})

	r := httptest.NewRequest(http.MethodPost, "/api/sync/run", nil)
	w := httptest.NewRecorder()
	handlers.Run(w, r)
	require.Equal(t, http.StatusAccepted, w.Code)

	var started struct {
		Started bool `json:"started"`
	}
	decodeBody(t, w, &started)
	assert.True(t, started.Started)

	require.Eventually(t, svc.Running, time.Second, time.Millisecond)

	// A second trigger while the first run is parked reports a conflict.
	w = httptest.NewRecorder()
	handlers.Run(w, httptest.NewRequest(http.MethodPost, "/api/sync/run", nil))
	require.Equal(t, http.StatusConflict, w.Code)
	decodeBody(t, w, &started)
	assert.False(t, started.Started)

	close(release)
	require.Eventually(t, func() bool { return !svc.Running() }, time.Second, time.Millisecond)
}

func TestSyncWaitReturnsUnchangedOnTimeout(t *testing.T) {
	handlers, _ := newSyncHandlers(t, &blockingSource{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r := httptest.NewRequest(http.MethodGet, "/api/sync/wait", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	handlers.Wait(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Changed  bool               `json:"changed"`
		Progress model.SyncProgress `json:"progress"`
	}
	decodeBody(t, w, &body)
	assert.False(t, body.Changed)
	assert.False(t, body.Progress.Running)
}

func TestSyncWaitObservesRunProgress(t *testing.T) {
	handlers, svc := newSyncHandlers(t, &blockingSource{})

	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		r := httptest.NewRequest(http.MethodGet, "/api/sync/wait", nil)
		handlers.Wait(w, r)
	}()

	// Give the long-poll a moment to subscribe before the run mutates progress.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, svc.RunNow(context.Background()))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("long-poll never observed the run")
	}

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Changed bool `json:"changed"`
	}
	decodeBody(t, w, &body)
	assert.True(t, body.Changed)
}
