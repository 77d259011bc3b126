package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/rentd/internal/observability/notify"
)

func TestSendPostsFormattedMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, Username: "rentd-test"})
	require.NoError(t, err)

	err = client.Send(context.Background(), notify.Event{
		Kind:       notify.KindSyncFailure,
		Title:      "Cloud sync failed",
		Error:      "store rejected document",
		ErrorClass: "errors_errorstring",
		OccurredAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Metadata:   map[string]string{"table": "cars"},
	})
	require.NoError(t, err)

	assert.Equal(t, "rentd-test", got["username"])
	text, _ := got["text"].(string)
	assert.Contains(t, text, "Cloud sync failed")
	assert.Contains(t, text, "store rejected document")
	assert.Contains(t, text, "table: cars")
	assert.Contains(t, text, "2025-03-01T12:00:00Z")
}

func TestSendRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, RetryLimit: 2})
	require.NoError(t, err)

	require.NoError(t, client.Send(context.Background(), notify.Event{Kind: notify.KindSyncFailure}))
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}
