package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/dealerops/rentd/internal/core"
)

// catalogPathPattern restricts catalog requests to the generated document
// names: the brands file, the manifest, and per-brand model files.
var catalogPathPattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once
	`^(?:brands_only\.v1\.json|brand_manifest\.v1\.json|brands/[a-z0-9-]+\.models\.v1\.json)$`)

// CatalogHandlers serves the generated car catalog documents read-only,
// fronted by the shared cache so repeated brand lookups skip the disk.
type CatalogHandlers struct {
	Dir      string
	Cache    core.CacheRepository // optional
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// Get handles GET /api/public/catalog/{path...}.
func (h *CatalogHandlers) Get(w http.ResponseWriter, r *http.Request) {
	rel := r.PathValue("path")
	if !catalogPathPattern.MatchString(rel) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("unknown catalog document")})
		return
	}

	if data := h.fromCache(r, rel); data != nil {
		h.writeDocument(w, data)
		return
	}

	data, err := os.ReadFile(filepath.Join(h.Dir, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("unknown catalog document")})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "catalog_failed", Err: err})
		return
	}

	h.storeCache(r, rel, data)
	h.writeDocument(w, data)
}

func (h *CatalogHandlers) writeDocument(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		// Client went away mid-response.
		return
	}
}

func (h *CatalogHandlers) fromCache(r *http.Request, rel string) []byte {
	if h.Cache == nil {
		return nil
	}
	data, err := h.Cache.Get(r.Context(), catalogCacheKey(rel))
	if err != nil {
		h.logger().WarnContext(r.Context(), "catalog cache read failed", "path", rel, "error", err)
		return nil
	}
	return data
}

func (h *CatalogHandlers) storeCache(r *http.Request, rel string, data []byte) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Set(r.Context(), catalogCacheKey(rel), data, h.CacheTTL); err != nil {
		h.logger().WarnContext(r.Context(), "catalog cache write failed", "path", rel, "error", err)
	}
}

func (h *CatalogHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func catalogCacheKey(rel string) string { return "catalog:" + rel }
