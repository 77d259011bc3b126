package service

import (
	"context"

	"github.com/dealerops/rentd/internal/core"
	"github.com/dealerops/rentd/internal/domain/model"
)

// PaymentServiceOptions groups dependencies for PaymentService.
type PaymentServiceOptions struct {
	Payments     core.PaymentRepository
	Reservations core.ReservationRepository
}

// PaymentService records payments and reports balances.
type PaymentService struct {
	payments     core.PaymentRepository
	reservations core.ReservationRepository
}

// NewPaymentService constructs a new PaymentService.
func NewPaymentService(opts PaymentServiceOptions) *PaymentService {
	return &PaymentService{payments: opts.Payments, reservations: opts.Reservations}
}

// Create records a payment against a reservation.
func (s *PaymentService) Create(ctx context.Context, req *model.CreatePaymentRequest) (*model.Payment, error) {
	return s.payments.Create(ctx, req)
}

// GetByID retrieves a payment by ID.
func (s *PaymentService) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

// List returns payments matching the options.
func (s *PaymentService) List(ctx context.Context, opts model.PaymentsListOptions) ([]*model.Payment, error) {
	return s.payments.List(ctx, opts)
}

// Delete deletes a payment.
func (s *PaymentService) Delete(ctx context.Context, id string) (bool, error) {
	return s.payments.Delete(ctx, id)
}

// Balance is the money state of one reservation.
type Balance struct {
	ReservationID    string `json:"reservation_id"`
	TotalCents       int64  `json:"total_cents"`
	PaidCents        int64  `json:"paid_cents"`
	OutstandingCents int64  `json:"outstanding_cents"`
}

// BalanceForReservation reports how much of a reservation's total is paid.
func (s *PaymentService) BalanceForReservation(ctx context.Context, reservationID string) (*Balance, error) {
	reservation, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	paid, err := s.payments.SumForReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	return &Balance{
		ReservationID:    reservationID,
		TotalCents:       reservation.TotalCents,
		PaidCents:        paid,
		OutstandingCents: reservation.TotalCents - paid,
	}, nil
}
