package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/rentd/internal/data"
)

func month(m time.Month) time.Time {
	return time.Date(2026, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestReportMergesBillingAndPayments(t *testing.T) {
	reservations := &stubReservationRepo{
		monthlyBilling: func(context.Context, time.Time, time.Time) ([]data.MonthlyBillingRow, error) {
			return []data.MonthlyBillingRow{
				{Month: month(time.February), ReservationCount: 2, RevenueCents: 50_000, CommissionCents: 5_000},
				{Month: month(time.January), ReservationCount: 3, RevenueCents: 90_000, CommissionCents: 9_500},
			}, nil
		},
	}
	payments := &stubPaymentRepo{
		monthlyRevenue: func(context.Context, time.Time, time.Time) ([]data.MonthlyRevenueRow, error) {
			return []data.MonthlyRevenueRow{
				{Month: month(time.January), PaymentCount: 2, TotalCents: 60_000},
				// March had no new reservations, only a late settlement.
				{Month: month(time.March), PaymentCount: 1, TotalCents: 30_000},
			}, nil
		},
	}
	svc := NewBillingService(BillingServiceOptions{Reservations: reservations, Payments: payments})

	report, err := svc.Report(context.Background(), month(time.January), month(time.April))
	require.NoError(t, err)
	require.Len(t, report.Months, 3)

	jan, feb, mar := report.Months[0], report.Months[1], report.Months[2]

	assert.Equal(t, month(time.January), jan.Month)
	assert.Equal(t, int64(90_000), jan.RevenueCents)
	assert.Equal(t, int64(60_000), jan.PaidCents)
	assert.Equal(t, int64(30_000), jan.OutstandingCents)

	assert.Equal(t, month(time.February), feb.Month)
	assert.Equal(t, int64(0), feb.PaidCents)
	assert.Equal(t, int64(50_000), feb.OutstandingCents)

	assert.Equal(t, month(time.March), mar.Month)
	assert.Equal(t, int64(0), mar.RevenueCents)
	assert.Equal(t, int64(-30_000), mar.OutstandingCents)

	assert.Equal(t, int64(140_000), report.TotalRevenueCents)
	assert.Equal(t, int64(14_500), report.TotalCommissionCents)
	assert.Equal(t, int64(90_000), report.TotalPaidCents)
	assert.Equal(t, int64(50_000), report.TotalOutstandingCents)
}

func TestReportRejectsReversedWindow(t *testing.T) {
	svc := NewBillingService(BillingServiceOptions{
		Reservations: &stubReservationRepo{},
		Payments:     &stubPaymentRepo{},
	})

	_, err := svc.Report(context.Background(), month(time.April), month(time.January))
	assert.ErrorIs(t, err, ErrInvalidReportWindow)

	_, err = svc.Report(context.Background(), month(time.January), month(time.January))
	assert.ErrorIs(t, err, ErrInvalidReportWindow)
}
