package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/rentd/internal/data"
	"github.com/dealerops/rentd/internal/domain/model"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func TestQuoteWindowCommissionTiers(t *testing.T) {
	svc := NewReservationService(ReservationServiceOptions{})

	tests := []struct {
		name        string
		days        int
		wantPercent float64
	}{
		{"short rental", 5, 15},
		{"medium rental", 10, 10},
		{"long rental", 24, 7},
		{"second block pro rata", 45, 10.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := svc.QuoteWindow(day(0), day(tt.days), 10_000)
			require.NoError(t, err)

			assert.Equal(t, tt.days, quote.Days)
			assert.Equal(t, int64(tt.days)*10_000, quote.TotalCents)
			assert.InDelta(t, tt.wantPercent, quote.CommissionPercent, 1e-9)
		})
	}
}

func TestCreateReservationDefaultsToCarRate(t *testing.T) {
	var got data.CreateReservationParams
	reservations := &stubReservationRepo{
		create: func(_ context.Context, p data.CreateReservationParams) (*model.Reservation, error) {
			got = p
			return &model.Reservation{ID: "r1", CarID: p.CarID, TotalCents: p.TotalCents}, nil
		},
	}
	cars := &stubCarRepo{
		getByID: func(_ context.Context, id string) (*model.Car, error) {
			return &model.Car{ID: id, Status: model.CarStatusAvailable, DailyRateCents: 5_000}, nil
		},
	}
	svc := NewReservationService(ReservationServiceOptions{Reservations: reservations, Cars: cars})

	_, err := svc.Create(context.Background(), &model.CreateReservationRequest{
		CustomerID: "c1",
		CarID:      "v1",
		StartDate:  day(0),
		EndDate:    day(3),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5_000), got.DailyRateCents)
	assert.Equal(t, int64(15_000), got.TotalCents)
	assert.InDelta(t, 15.0, got.CommissionPercent, 1e-9)
	assert.Equal(t, int64(2_250), got.CommissionCents)
}

func TestCreateReservationRejectsUnrentableCar(t *testing.T) {
	for _, status := range []model.CarStatus{model.CarStatusSold, model.CarStatusMaintenance} {
		t.Run(string(status), func(t *testing.T) {
			cars := &stubCarRepo{
				getByID: func(_ context.Context, id string) (*model.Car, error) {
					return &model.Car{ID: id, Status: status, DailyRateCents: 5_000}, nil
				},
			}
			svc := NewReservationService(ReservationServiceOptions{
				Reservations: &stubReservationRepo{},
				Cars:         cars,
			})

			_, err := svc.Create(context.Background(), &model.CreateReservationRequest{
				CustomerID: "c1",
				CarID:      "v1",
				StartDate:  day(0),
				EndDate:    day(3),
			})
			assert.ErrorIs(t, err, ErrCarNotRentable)
		})
	}
}

func TestExtendRepricesWholeWindowAtStoredRate(t *testing.T) {
	current := &model.Reservation{
		ID:             "r1",
		CarID:          "v1",
		StartDate:      day(0),
		EndDate:        day(5),
		DailyRateCents: 10_000,
		Status:         model.ReservationStatusActive,
	}

	var gotTotal, gotCommission int64
	var gotPercent float64
	reservations := &stubReservationRepo{
		getByID: func(context.Context, string) (*model.Reservation, error) { return current, nil },
		extendDates: func(_ context.Context, _ string, newEnd time.Time, total int64, pct float64, cents int64) (*model.Reservation, error) {
			gotTotal, gotPercent, gotCommission = total, pct, cents
			extended := *current
			extended.EndDate = newEnd
			return &extended, nil
		},
	}
	svc := NewReservationService(ReservationServiceOptions{Reservations: reservations})

	// 5 days at 15% becomes 10 days at 10% after the extension.
	_, err := svc.Extend(context.Background(), "r1", model.ExtendReservationRequest{NewEndDate: day(10)})
	require.NoError(t, err)

	assert.Equal(t, int64(100_000), gotTotal)
	assert.InDelta(t, 10.0, gotPercent, 1e-9)
	assert.Equal(t, int64(10_000), gotCommission)
}

func TestExtendSurfacesDoubleBooking(t *testing.T) {
	current := &model.Reservation{
		ID:             "r1",
		CarID:          "v1",
		StartDate:      day(0),
		EndDate:        day(5),
		DailyRateCents: 10_000,
		Status:         model.ReservationStatusActive,
	}

	// The repository rejects the extension because another booking for the
	// same car already holds part of the longer window.
	reservations := &stubReservationRepo{
		getByID: func(context.Context, string) (*model.Reservation, error) { return current, nil },
		extendDates: func(context.Context, string, time.Time, int64, float64, int64) (*model.Reservation, error) {
			return nil, data.ErrCarUnavailable
		},
	}
	svc := NewReservationService(ReservationServiceOptions{Reservations: reservations})

	_, err := svc.Extend(context.Background(), "r1", model.ExtendReservationRequest{NewEndDate: day(10)})
	assert.ErrorIs(t, err, data.ErrCarUnavailable)
}

func TestUpdateMirrorsStatusOntoCar(t *testing.T) {
	tests := []struct {
		name       string
		carStatus  model.CarStatus
		newStatus  model.ReservationStatus
		wantStatus model.CarStatus
		wantCall   bool
	}{
		{"activation rents the car", model.CarStatusAvailable, model.ReservationStatusActive, model.CarStatusRented, true},
		{"completion frees the car", model.CarStatusRented, model.ReservationStatusCompleted, model.CarStatusAvailable, true},
		{"cancellation frees the car", model.CarStatusRented, model.ReservationStatusCancelled, model.CarStatusAvailable, true},
		{"sold cars are left alone", model.CarStatusSold, model.ReservationStatusCompleted, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotStatus model.CarStatus
			called := false
			cars := &stubCarRepo{
				getByID: func(_ context.Context, id string) (*model.Car, error) {
					return &model.Car{ID: id, Status: tt.carStatus}, nil
				},
				updateStatus: func(_ context.Context, _ string, status model.CarStatus) (*model.Car, error) {
					called = true
					gotStatus = status
					return &model.Car{Status: status}, nil
				},
			}
			reservations := &stubReservationRepo{
				update: func(_ context.Context, id string, req model.UpdateReservationRequest) (*model.Reservation, error) {
					return &model.Reservation{ID: id, CarID: "v1", Status: *req.Status}, nil
				},
			}
			svc := NewReservationService(ReservationServiceOptions{Reservations: reservations, Cars: cars})

			status := tt.newStatus
			_, err := svc.Update(context.Background(), "r1", model.UpdateReservationRequest{Status: &status})
			require.NoError(t, err)

			assert.Equal(t, tt.wantCall, called)
			if tt.wantCall {
				assert.Equal(t, tt.wantStatus, gotStatus)
			}
		})
	}
}

func TestRolloverAdvancesLifecycles(t *testing.T) {
	now := day(10)

	booked := &model.Reservation{
		ID: "r1", CarID: "v1", StartDate: day(9), EndDate: day(12),
		Status: model.ReservationStatusBooked,
	}
	future := &model.Reservation{
		ID: "r2", CarID: "v2", StartDate: day(11), EndDate: day(14),
		Status: model.ReservationStatusBooked,
	}
	expired := &model.Reservation{
		ID: "r3", CarID: "v3", StartDate: day(5), EndDate: day(8),
		Status: model.ReservationStatusActive,
	}
	running := &model.Reservation{
		ID: "r4", CarID: "v4", StartDate: day(9), EndDate: day(12),
		Status: model.ReservationStatusActive,
	}

	updated := map[string]model.ReservationStatus{}
	reservations := &stubReservationRepo{
		list: func(_ context.Context, opts model.ReservationsListOptions) ([]*model.Reservation, error) {
			switch *opts.Status {
			case model.ReservationStatusBooked:
				return []*model.Reservation{booked, future}, nil
			case model.ReservationStatusActive:
				return []*model.Reservation{expired, running}, nil
			}
			return nil, nil
		},
		update: func(_ context.Context, id string, req model.UpdateReservationRequest) (*model.Reservation, error) {
			updated[id] = *req.Status
			return &model.Reservation{ID: id, CarID: "v1", Status: *req.Status}, nil
		},
	}
	cars := &stubCarRepo{
		getByID: func(_ context.Context, id string) (*model.Car, error) {
			return &model.Car{ID: id, Status: model.CarStatusRented}, nil
		},
		updateStatus: func(_ context.Context, id string, status model.CarStatus) (*model.Car, error) {
			return &model.Car{ID: id, Status: status}, nil
		},
	}
	svc := NewReservationService(ReservationServiceOptions{Reservations: reservations, Cars: cars})

	changed, err := svc.Rollover(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 2, changed)
	assert.Equal(t, model.ReservationStatusActive, updated["r1"])
	assert.Equal(t, model.ReservationStatusCompleted, updated["r3"])
	assert.NotContains(t, updated, "r2")
	assert.NotContains(t, updated, "r4")
}
