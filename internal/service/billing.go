package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dealerops/rentd/internal/core"
)

// ErrInvalidReportWindow is returned when a report window is empty or reversed.
var ErrInvalidReportWindow = errors.New("report window must have from before to")

// MonthlyReportRow summarizes one month of business.
type MonthlyReportRow struct {
	Month            time.Time `json:"month"`
	ReservationCount int64     `json:"reservation_count"`
	RevenueCents     int64     `json:"revenue_cents"`
	CommissionCents  int64     `json:"commission_cents"`
	PaymentCount     int64     `json:"payment_count"`
	PaidCents        int64     `json:"paid_cents"`
	OutstandingCents int64     `json:"outstanding_cents"`
}

// RevenueReport covers a half-open [From, To) window, one row per month
// that had any activity.
type RevenueReport struct {
	From                  time.Time          `json:"from"`
	To                    time.Time          `json:"to"`
	Months                []MonthlyReportRow `json:"months"`
	TotalRevenueCents     int64              `json:"total_revenue_cents"`
	TotalCommissionCents  int64              `json:"total_commission_cents"`
	TotalPaidCents        int64              `json:"total_paid_cents"`
	TotalOutstandingCents int64              `json:"total_outstanding_cents"`
}

// BillingServiceOptions groups dependencies for BillingService.
type BillingServiceOptions struct {
	Reservations core.ReservationRepository
	Payments     core.PaymentRepository
}

// BillingService builds revenue reports from reservations and payments.
type BillingService struct {
	reservations core.ReservationRepository
	payments     core.PaymentRepository
}

// NewBillingService constructs a new BillingService.
func NewBillingService(opts BillingServiceOptions) *BillingService {
	return &BillingService{reservations: opts.Reservations, payments: opts.Payments}
}

// Report merges monthly reservation billing with monthly payments received.
// Outstanding is billed revenue minus payments received in the same month,
// so a month can go negative when old invoices get settled late.
func (s *BillingService) Report(ctx context.Context, from, to time.Time) (*RevenueReport, error) {
	if !from.Before(to) {
		return nil, ErrInvalidReportWindow
	}

	billing, err := s.reservations.MonthlyBilling(ctx, from, to)
	if err != nil {
		return nil, err
	}
	revenue, err := s.payments.MonthlyRevenue(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[time.Time]*MonthlyReportRow)
	monthRow := func(month time.Time) *MonthlyReportRow {
		key := month.UTC()
		row, ok := byMonth[key]
		if !ok {
			row = &MonthlyReportRow{Month: key}
			byMonth[key] = row
		}
		return row
	}

	for _, b := range billing {
		row := monthRow(b.Month)
		row.ReservationCount = b.ReservationCount
		row.RevenueCents = b.RevenueCents
		row.CommissionCents = b.CommissionCents
	}
	for _, r := range revenue {
		row := monthRow(r.Month)
		row.PaymentCount = r.PaymentCount
		row.PaidCents = r.TotalCents
	}

	report := &RevenueReport{From: from, To: to, Months: make([]MonthlyReportRow, 0, len(byMonth))}
	for _, row := range byMonth {
		row.OutstandingCents = row.RevenueCents - row.PaidCents
		report.Months = append(report.Months, *row)
		report.TotalRevenueCents += row.RevenueCents
		report.TotalCommissionCents += row.CommissionCents
		report.TotalPaidCents += row.PaidCents
		report.TotalOutstandingCents += row.OutstandingCents
	}
	sort.Slice(report.Months, func(i, j int) bool {
		return report.Months[i].Month.Before(report.Months[j].Month)
	})
	return report, nil
}
