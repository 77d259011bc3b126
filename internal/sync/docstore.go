package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DocumentStore receives one document per dirty row. Uploads are idempotent
// puts keyed by collection and ID, so re-sending a row after a crash is safe.
type DocumentStore interface {
	Put(ctx context.Context, collection, id string, doc map[string]any) error
}

// HTTPDocumentStoreConfig configures the HTTP document store client.
type HTTPDocumentStoreConfig struct {
	Endpoint string
	APIToken string
	Timeout  time.Duration
	Client   *http.Client
}

// HTTPDocumentStore pushes documents to a REST document store:
// PUT {endpoint}/{collection}/{id} with a JSON body.
type HTTPDocumentStore struct {
	endpoint string
	apiToken string
	client   *http.Client
}

// NewHTTPDocumentStore builds an HTTP document store client.
func NewHTTPDocumentStore(cfg HTTPDocumentStoreConfig) (*HTTPDocumentStore, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("document store endpoint is required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid document store endpoint: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &HTTPDocumentStore{
		endpoint: endpoint,
		apiToken: strings.TrimSpace(cfg.APIToken),
		client:   hc,
	}, nil
}

// Put uploads one document.
func (s *HTTPDocumentStore) Put(ctx context.Context, collection, id string, doc map[string]any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, id, err)
	}

	target := s.endpoint + "/" + url.PathEscape(collection) + "/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request for %s/%s: %w", collection, id, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("put document %s/%s: %w", collection, id, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet := readBodySnippet(resp.Body)
		return fmt.Errorf("put document %s/%s: unexpected status %d: %s",
			collection, id, resp.StatusCode, snippet)
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

const maxErrorBodyBytes = 512

func readBodySnippet(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil || len(data) == 0 {
		return "<no body>"
	}
	return strings.TrimSpace(string(data))
}

var _ DocumentStore = (*HTTPDocumentStore)(nil)
