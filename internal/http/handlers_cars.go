package httpx

import (
	"errors"
	"net/http"

	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/service"
)

const maxCarListLimit = 200

// CarHandlers provides HTTP handlers for fleet operations.
type CarHandlers struct {
	Svc *service.CarService
}

// Create handles POST /api/cars.
func (h *CarHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCarRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	car, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "create_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, car)
}

// List handles GET /api/cars with pagination and filters.
func (h *CarHandlers) List(w http.ResponseWriter, r *http.Request) {
	opts, ok := carListOptions(w, r)
	if !ok {
		return
	}

	cars, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"cars":   cars,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// GetByID handles GET /api/cars/{id}.
func (h *CarHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("car id is required")})
		return
	}

	car, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, car)
}

// Update handles PUT /api/cars/{id}.
func (h *CarHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("car id is required")})
		return
	}

	var req model.UpdateCarRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	car, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, car)
}

// Delete handles DELETE /api/cars/{id}.
func (h *CarHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("car id is required")})
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "delete_failed")
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("car not found")})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// PublicList handles GET /api/public/cars. Responses come from the listings
// cache when possible.
func (h *CarHandlers) PublicList(w http.ResponseWriter, r *http.Request) {
	opts, ok := carListOptions(w, r)
	if !ok {
		return
	}

	cars, err := h.Svc.PublicList(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"cars":   cars,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

func carListOptions(w http.ResponseWriter, r *http.Request) (model.CarsListOptions, bool) {
	limit, offset := ParseLimitOffset(r, 50, maxCarListLimit)
	opts := model.CarsListOptions{
		Limit:   limit,
		Offset:  offset,
		Q:       queryString(r, "q"),
		BrandID: queryString(r, "brand_id"),
		Sort:    r.URL.Query().Get("sort"),
		Dir:     r.URL.Query().Get("dir"),
	}

	if s := queryString(r, "status"); s != nil {
		status, ok := model.ParseCarStatus(*s)
		if !ok {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_filter", Err: errors.New("invalid status filter")})
			return opts, false
		}
		opts.Status = &status
	}
	if maxRate := parseIntQuery(r, "max_rate_cents", 0); maxRate > 0 {
		rate := int64(maxRate)
		opts.MaxRateCents = &rate
	}

	return opts, true
}
