package httpx

import (
	"errors"
	"net/http"

	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/service"
)

const maxReservationListLimit = 200

// ReservationHandlers provides HTTP handlers for reservation operations.
type ReservationHandlers struct {
	Svc      *service.ReservationService
	Payments *service.PaymentService
}

// Create handles POST /api/reservations.
func (h *ReservationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateReservationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	reservation, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "create_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, reservation)
}

// List handles GET /api/reservations.
func (h *ReservationHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, 50, maxReservationListLimit)
	opts := model.ReservationsListOptions{
		Limit:      limit,
		Offset:     offset,
		CustomerID: queryString(r, "customer_id"),
		CarID:      queryString(r, "car_id"),
		Sort:       r.URL.Query().Get("sort"),
		Dir:        r.URL.Query().Get("dir"),
	}

	if s := queryString(r, "status"); s != nil {
		status, ok := model.ParseReservationStatus(*s)
		if !ok {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_filter", Err: errors.New("invalid status filter")})
			return
		}
		opts.Status = &status
	}

	var ok bool
	if opts.From, ok = queryDate(r, "from"); !ok {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_filter", Err: errors.New("invalid from date")})
		return
	}
	if opts.To, ok = queryDate(r, "to"); !ok {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_filter", Err: errors.New("invalid to date")})
		return
	}

	reservations, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"reservations": reservations,
		"limit":        limit,
		"offset":       offset,
	})
}

// GetByID handles GET /api/reservations/{id}.
func (h *ReservationHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("reservation id is required")})
		return
	}

	reservation, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, reservation)
}

// Update handles PUT /api/reservations/{id}. Status transitions keep the
// car's status in step.
func (h *ReservationHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("reservation id is required")})
		return
	}

	var req model.UpdateReservationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	reservation, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, reservation)
}

// Delete handles DELETE /api/reservations/{id}.
func (h *ReservationHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("reservation id is required")})
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "delete_failed")
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("reservation not found")})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Extend handles POST /api/reservations/{id}/extend. The whole window is
// re-priced at the stored daily rate, so a longer rental can land in a
// cheaper commission tier.
func (h *ReservationHandlers) Extend(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("reservation id is required")})
		return
	}

	var req model.ExtendReservationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	reservation, err := h.Svc.Extend(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "extend_failed")
		return
	}

	WriteJSON(w, http.StatusOK, reservation)
}

// Quote handles GET /api/reservations/quote?car_id=&start=&end=.
// It prices a rental window without booking it.
func (h *ReservationHandlers) Quote(w http.ResponseWriter, r *http.Request) {
	carID := r.URL.Query().Get("car_id")
	if carID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: errors.New("car_id is required")})
		return
	}

	start, ok := queryDate(r, "start")
	if !ok || start == nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: errors.New("start date is required")})
		return
	}
	end, ok := queryDate(r, "end")
	if !ok || end == nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: errors.New("end date is required")})
		return
	}

	quote, err := h.Svc.QuoteForCar(r.Context(), carID, *start, *end)
	if err != nil {
		writeServiceError(w, err, "quote_failed")
		return
	}

	WriteJSON(w, http.StatusOK, quote)
}

// Balance handles GET /api/reservations/{id}/balance.
func (h *ReservationHandlers) Balance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("reservation id is required")})
		return
	}

	balance, err := h.Payments.BalanceForReservation(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "balance_failed")
		return
	}

	WriteJSON(w, http.StatusOK, balance)
}
