package httpx

import (
	"errors"
	"net/http"

	"github.com/dealerops/rentd/internal/data"
	"github.com/dealerops/rentd/internal/service"
)

// notFoundErrors and conflictErrors map repository sentinels onto HTTP codes
// so every handler classifies errors the same way.
var notFoundErrors = []error{ //nolint:gochecknoglobals // read-only sentinel table
	data.ErrCarNotFound,
	data.ErrCustomerNotFound,
	data.ErrSupplierNotFound,
	data.ErrReservationNotFound,
	data.ErrPaymentNotFound,
	data.ErrLeadNotFound,
	data.ErrLeadRuleNotFound,
}

var conflictErrors = []error{ //nolint:gochecknoglobals // read-only sentinel table
	data.ErrCarPlateExists,
	data.ErrLeadRuleExists,
	data.ErrCarUnavailable,
}

// writeServiceError translates a service/repository error into a JSON error
// response. errCode is the handler-specific fallback for unexpected errors.
func writeServiceError(w http.ResponseWriter, err error, errCode string) {
	switch {
	case matchesAny(err, notFoundErrors):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err})
	case matchesAny(err, conflictErrors):
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "conflict", Err: err})
	case errors.Is(err, service.ErrCarNotRentable),
		errors.Is(err, service.ErrInvalidReportWindow),
		errors.Is(err, data.ErrForeignKey),
		isValidationError(err):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: err})
	default:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: errCode, Err: err})
	}
}

func matchesAny(err error, sentinels []error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
