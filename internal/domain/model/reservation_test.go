package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRentalDays(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"same day counts as one", date(2026, 3, 1), date(2026, 3, 1), 1},
		{"one full day", date(2026, 3, 1), date(2026, 3, 2), 1},
		{"one week", date(2026, 3, 1), date(2026, 3, 8), 7},
		{"partial day rounds up", date(2026, 3, 1), date(2026, 3, 2).Add(6 * time.Hour), 2},
		{"end before start", date(2026, 3, 2), date(2026, 3, 1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RentalDays(tt.start, tt.end))
		})
	}
}

func TestCreateReservationRequest_Validate(t *testing.T) {
	valid := CreateReservationRequest{
		CustomerID: "cust-1",
		CarID:      "car-1",
		StartDate:  date(2026, 3, 1),
		EndDate:    date(2026, 3, 5),
	}
	require.NoError(t, valid.Validate())

	missingCar := valid
	missingCar.CarID = " "
	assert.Error(t, missingCar.Validate())

	backwards := valid
	backwards.StartDate, backwards.EndDate = backwards.EndDate, backwards.StartDate
	assert.Error(t, backwards.Validate())

	negRate := valid
	neg := int64(-1)
	negRate.DailyRateCents = &neg
	assert.Error(t, negRate.Validate())
}

func TestExtendReservationRequest_Validate(t *testing.T) {
	res := &Reservation{
		StartDate: date(2026, 3, 1),
		EndDate:   date(2026, 3, 10),
		Status:    ReservationStatusActive,
	}

	ok := ExtendReservationRequest{NewEndDate: date(2026, 3, 20)}
	require.NoError(t, ok.Validate(res))

	notAfter := ExtendReservationRequest{NewEndDate: date(2026, 3, 10)}
	assert.Error(t, notAfter.Validate(res))

	cancelled := *res
	cancelled.Status = ReservationStatusCancelled
	assert.Error(t, ok.Validate(&cancelled))

	assert.Error(t, ok.Validate(nil))
}

func TestParseReservationStatus(t *testing.T) {
	s, ok := ParseReservationStatus(" Active ")
	assert.True(t, ok)
	assert.Equal(t, ReservationStatusActive, s)

	_, ok = ParseReservationStatus("parked")
	assert.False(t, ok)
}
