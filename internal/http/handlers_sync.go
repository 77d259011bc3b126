package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dealerops/rentd/internal/service"
)

// syncWaitTimeout bounds the long-poll so it finishes inside the server's
// write timeout.
const syncWaitTimeout = 30 * time.Second

// SyncHandlers provides HTTP handlers for cloud sync control and progress.
type SyncHandlers struct {
	Svc *service.SyncService
}

// requireSync rejects sync requests when no sync endpoint is configured.
func (h *SyncHandlers) requireSync(w http.ResponseWriter) bool {
	if h.Svc == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "sync_disabled",
			Err:     errors.New("cloud sync is not configured"),
		})
		return false
	}
	return true
}

// Run handles POST /api/sync/run. The run happens in the background; callers
// poll /api/sync/status or long-poll /api/sync/wait to follow it.
func (h *SyncHandlers) Run(w http.ResponseWriter, r *http.Request) {
	if !h.requireSync(w) {
		return
	}
	started, err := h.Svc.TriggerAsync(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "sync_failed", Err: err})
		return
	}
	if !started {
		WriteJSON(w, http.StatusConflict, map[string]any{
			"started":  false,
			"progress": h.Svc.Status(),
		})
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]any{
		"started":  true,
		"progress": h.Svc.Status(),
	})
}

// Status handles GET /api/sync/status.
func (h *SyncHandlers) Status(w http.ResponseWriter, r *http.Request) {
	if !h.requireSync(w) {
		return
	}
	WriteJSON(w, http.StatusOK, h.Svc.Status())
}

// Wait handles GET /api/sync/wait. It blocks until the progress record
// changes or the wait times out, then returns the latest snapshot. The
// "changed" field tells pollers whether anything moved.
func (h *SyncHandlers) Wait(w http.ResponseWriter, r *http.Request) {
	if !h.requireSync(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), syncWaitTimeout)
	defer cancel()

	progress, changed := h.Svc.WaitForChange(ctx)
	WriteJSON(w, http.StatusOK, map[string]any{
		"changed":  changed,
		"progress": progress,
	})
}
