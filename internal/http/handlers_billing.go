package httpx

import (
	"errors"
	"net/http"

	"github.com/dealerops/rentd/internal/service"
)

// BillingHandlers provides HTTP handlers for revenue reporting.
type BillingHandlers struct {
	Svc *service.BillingService
}

// RevenueReport handles GET /api/billing/revenue?from=&to=.
// The window is half-open: [from, to).
func (h *BillingHandlers) RevenueReport(w http.ResponseWriter, r *http.Request) {
	from, ok := queryDate(r, "from")
	if !ok || from == nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: errors.New("from date is required")})
		return
	}
	to, ok := queryDate(r, "to")
	if !ok || to == nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: errors.New("to date is required")})
		return
	}

	report, err := h.Svc.Report(r.Context(), *from, *to)
	if err != nil {
		writeServiceError(w, err, "report_failed")
		return
	}

	WriteJSON(w, http.StatusOK, report)
}
