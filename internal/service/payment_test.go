package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/rentd/internal/domain/model"
)

func TestBalanceForReservation(t *testing.T) {
	reservations := &stubReservationRepo{
		getByID: func(_ context.Context, id string) (*model.Reservation, error) {
			return &model.Reservation{ID: id, TotalCents: 80_000}, nil
		},
	}
	payments := &stubPaymentRepo{
		sumForReservation: func(context.Context, string) (int64, error) {
			return 50_000, nil
		},
	}
	svc := NewPaymentService(PaymentServiceOptions{Payments: payments, Reservations: reservations})

	balance, err := svc.BalanceForReservation(context.Background(), "r1")
	require.NoError(t, err)

	assert.Equal(t, "r1", balance.ReservationID)
	assert.Equal(t, int64(80_000), balance.TotalCents)
	assert.Equal(t, int64(50_000), balance.PaidCents)
	assert.Equal(t, int64(30_000), balance.OutstandingCents)
}
