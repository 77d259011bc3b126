package httpx

import (
	"errors"
	"net/http"

	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/service"
)

const maxCustomerListLimit = 200

// CustomerHandlers provides HTTP handlers for customer operations.
type CustomerHandlers struct {
	Svc *service.CustomerService
}

// Create handles POST /api/customers.
func (h *CustomerHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCustomerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	customer, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "create_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, customer)
}

// List handles GET /api/customers.
func (h *CustomerHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, 50, maxCustomerListLimit)

	customers, err := h.Svc.List(r.Context(), limit, offset, queryString(r, "q"))
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"customers": customers,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetByID handles GET /api/customers/{id}.
func (h *CustomerHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("customer id is required")})
		return
	}

	customer, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, customer)
}

// Update handles PUT /api/customers/{id}.
func (h *CustomerHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("customer id is required")})
		return
	}

	var req model.UpdateCustomerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	customer, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, customer)
}

// Delete handles DELETE /api/customers/{id}.
func (h *CustomerHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("customer id is required")})
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "delete_failed")
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("customer not found")})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
