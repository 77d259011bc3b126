package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dealerops/rentd/internal/data"
	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/mocks"
	"github.com/dealerops/rentd/internal/service"
)

func newReservationHandlers(t *testing.T) (*ReservationHandlers, *mocks.MockCarRepository, *mocks.MockReservationRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	cars := mocks.NewMockCarRepository(ctrl)
	reservations := mocks.NewMockReservationRepository(ctrl)
	svc := service.NewReservationService(service.ReservationServiceOptions{
		Reservations: reservations,
		Cars:         cars,
	})
	return &ReservationHandlers{Svc: svc}, cars, reservations
}

func TestQuoteEndpointPricesWindow(t *testing.T) {
	h, cars, _ := newReservationHandlers(t)

	cars.EXPECT().GetByID(gomock.Any(), "car-1").Return(&model.Car{
		ID:             "car-1",
		Status:         model.CarStatusAvailable,
		DailyRateCents: 10000,
	}, nil)

	r := httptest.NewRequest(http.MethodGet,
		"/api/reservations/quote?car_id=car-1&start=2026-03-01&end=2026-04-15", nil)
	w := httptest.NewRecorder()

	h.Quote(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var quote service.Quote
	decodeBody(t, w, &quote)
	assert.Equal(t, 45, quote.Days)
	assert.Equal(t, int64(450000), quote.TotalCents)
	assert.InDelta(t, 10.5, quote.CommissionPercent, 0.0001)
	assert.Equal(t, int64(47250), quote.CommissionCents)
}

func TestQuoteEndpointRequiresCarID(t *testing.T) {
	h, _, _ := newReservationHandlers(t)

	r := httptest.NewRequest(http.MethodGet, "/api/reservations/quote?start=2026-03-01&end=2026-03-05", nil)
	w := httptest.NewRecorder()

	h.Quote(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuoteEndpointRejectsBadDates(t *testing.T) {
	h, _, _ := newReservationHandlers(t)

	r := httptest.NewRequest(http.MethodGet,
		"/api/reservations/quote?car_id=car-1&start=yesterday&end=2026-03-05", nil)
	w := httptest.NewRecorder()

	h.Quote(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReservationNotFound(t *testing.T) {
	h, _, reservations := newReservationHandlers(t)

	reservations.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, data.ErrReservationNotFound)

	r := httptest.NewRequest(http.MethodGet, "/api/reservations/missing", nil)
	r.SetPathValue("id", "missing")
	w := httptest.NewRecorder()

	h.GetByID(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateReservationInvalidJSON(t *testing.T) {
	h, _, _ := newReservationHandlers(t)

	r := httptest.NewRequest(http.MethodPost, "/api/reservations", strings.NewReader("{bad"))
	w := httptest.NewRecorder()

	h.Create(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListReservationsRejectsBadStatusFilter(t *testing.T) {
	h, _, _ := newReservationHandlers(t)

	r := httptest.NewRequest(http.MethodGet, "/api/reservations?status=parked", nil)
	w := httptest.NewRecorder()

	h.List(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
