package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDocumentStorePut(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewHTTPDocumentStore(HTTPDocumentStoreConfig{
		Endpoint: srv.URL + "/",
		APIToken: "secret-token",
	})
	require.NoError(t, err)

	err = store.Put(context.Background(), "cars", "car-1", map[string]any{"plate": "AB-123-CD"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/cars/car-1", gotPath)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "AB-123-CD", gotBody["plate"])
}

func TestHTTPDocumentStorePutErrorIncludesBodySnippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"document rejected"}`))
	}))
	defer srv.Close()

	store, err := NewHTTPDocumentStore(HTTPDocumentStoreConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	err = store.Put(context.Background(), "leads", "lead-1", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "document rejected")
}

func TestNewHTTPDocumentStoreRequiresEndpoint(t *testing.T) {
	_, err := NewHTTPDocumentStore(HTTPDocumentStoreConfig{})
	assert.Error(t, err)
}
