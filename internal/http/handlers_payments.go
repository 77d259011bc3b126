package httpx

import (
	"errors"
	"net/http"

	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/service"
)

const maxPaymentListLimit = 200

// PaymentHandlers provides HTTP handlers for payment operations.
type PaymentHandlers struct {
	Svc *service.PaymentService
}

// Create handles POST /api/payments.
func (h *PaymentHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePaymentRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	payment, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "create_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, payment)
}

// List handles GET /api/payments.
func (h *PaymentHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, 50, maxPaymentListLimit)
	opts := model.PaymentsListOptions{
		Limit:         limit,
		Offset:        offset,
		ReservationID: queryString(r, "reservation_id"),
		CustomerID:    queryString(r, "customer_id"),
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

	payments, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"payments": payments,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetByID handles GET /api/payments/{id}.
func (h *PaymentHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("payment id is required")})
		return
	}

	payment, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, payment)
}

// Delete handles DELETE /api/payments/{id}. Payments are corrections-only:
// there is no update endpoint, a wrong payment is deleted and re-entered.
func (h *PaymentHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("payment id is required")})
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "delete_failed")
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("payment not found")})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
