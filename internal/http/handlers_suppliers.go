package httpx

import (
	"errors"
	"net/http"

	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/service"
)

const maxSupplierListLimit = 200

// SupplierHandlers provides HTTP handlers for supplier operations.
type SupplierHandlers struct {
	Svc *service.SupplierService
}

// Create handles POST /api/suppliers.
func (h *SupplierHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSupplierRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	supplier, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "create_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, supplier)
}

// List handles GET /api/suppliers.
func (h *SupplierHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, 50, maxSupplierListLimit)

	suppliers, err := h.Svc.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"suppliers": suppliers,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetByID handles GET /api/suppliers/{id}.
func (h *SupplierHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("supplier id is required")})
		return
	}

	supplier, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, supplier)
}

// Update handles PUT /api/suppliers/{id}.
func (h *SupplierHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("supplier id is required")})
		return
	}

	var req model.UpdateSupplierRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	supplier, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, supplier)
}

// Delete handles DELETE /api/suppliers/{id}.
func (h *SupplierHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("supplier id is required")})
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "delete_failed")
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("supplier not found")})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
