package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/service"
)

// BackupHandlers provides HTTP handlers for database export and restore.
// Both operations require backup permission (admin); restore replaces table
// contents wholesale.
type BackupHandlers struct {
	Svc *service.BackupService
}

// Export handles GET /api/backup/export and streams the backup as a JSON
// file download.
func (h *BackupHandlers) Export(w http.ResponseWriter, r *http.Request) {
	if !requireBackupPermission(w, r) {
		return
	}

	file, err := h.Svc.Export(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "export_failed", Err: err})
		return
	}

	filename := fmt.Sprintf("rentd-backup-%s.json", file.ExportedAt.UTC().Format("20060102-150405"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	WriteJSON(w, http.StatusOK, file)
}

// Restore handles POST /api/backup/restore with a backup file as the body.
func (h *BackupHandlers) Restore(w http.ResponseWriter, r *http.Request) {
	if !requireBackupPermission(w, r) {
		return
	}

	var file model.BackupFile
	if !DecodeJSON(w, r, &file) {
		return
	}

	if err := h.Svc.Restore(r.Context(), &file); err != nil {
		if isValidationError(err) {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_backup", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "restore_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"restored":  true,
		"row_count": file.RowCount(),
	})
}

// requireBackupPermission enforces the session backup capability on top of
// the admin-role route middleware.
func requireBackupPermission(w http.ResponseWriter, r *http.Request) bool {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return false
	}
	if !session.CanManageBackups() {
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "insufficient_permissions",
			Err:     errors.New("backup management requires admin role"),
		})
		return false
	}
	return true
}
