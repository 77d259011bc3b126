package httpx

import (
	"errors"
	"net/http"

	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/service"
)

const maxLeadListLimit = 200

// LeadHandlers provides HTTP handlers for lead intake and management.
type LeadHandlers struct {
	Svc *service.LeadService
}

// Submit handles POST /api/public/leads. This is the only unauthenticated
// write endpoint, so the request shape is strict.
func (h *LeadHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.CreateLeadRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	lead, err := h.Svc.Submit(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "submit_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, lead)
}

// List handles GET /api/leads.
func (h *LeadHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, 50, maxLeadListLimit)
	opts := model.LeadsListOptions{
		Limit:        limit,
		Offset:       offset,
		AssignedTo:   queryString(r, "assigned_to"),
		SourceDomain: queryString(r, "source_domain"),
		Sort:         r.URL.Query().Get("sort"),
		Dir:          r.URL.Query().Get("dir"),
	}

	if s := queryString(r, "status"); s != nil {
		status, ok := model.ParseLeadStatus(*s)
		if !ok {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_filter", Err: errors.New("invalid status filter")})
			return
		}
		opts.Status = &status
	}

	leads, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"leads":  leads,
		"limit":  limit,
		"offset": offset,
	})
}

// GetByID handles GET /api/leads/{id}.
func (h *LeadHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("lead id is required")})
		return
	}

	lead, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, lead)
}

// Update handles PUT /api/leads/{id} (status transitions and reassignment).
func (h *LeadHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("lead id is required")})
		return
	}

	var req model.UpdateLeadRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	lead, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, lead)
}

// Delete handles DELETE /api/leads/{id}.
func (h *LeadHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("lead id is required")})
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "delete_failed")
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("lead not found")})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// CreateRule handles POST /api/lead-rules.
func (h *LeadHandlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req model.CreateLeadRuleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	rule, err := h.Svc.CreateRule(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "create_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, rule)
}

// ListRules handles GET /api/lead-rules.
func (h *LeadHandlers) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Svc.ListRules(r.Context())
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

// GetRule handles GET /api/lead-rules/{id}.
func (h *LeadHandlers) GetRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("rule id is required")})
		return
	}

	rule, err := h.Svc.GetRule(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, rule)
}

// SetRuleEnabled handles PUT /api/lead-rules/{id} with {"enabled": bool}.
func (h *LeadHandlers) SetRuleEnabled(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("rule id is required")})
		return
	}

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: errors.New("enabled is required")})
		return
	}

	rule, err := h.Svc.SetRuleEnabled(r.Context(), id, *req.Enabled)
	if err != nil {
		writeServiceError(w, err, "update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, rule)
}

// DeleteRule handles DELETE /api/lead-rules/{id}.
func (h *LeadHandlers) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("rule id is required")})
		return
	}

	deleted, err := h.Svc.DeleteRule(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "delete_failed")
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("lead rule not found")})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
