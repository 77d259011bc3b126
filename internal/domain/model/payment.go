package model

import (
	"errors"
	"strings"
	"time"
)

// PaymentMethod enumerates how a payment was made.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCheck    PaymentMethod = "check"
)

// Valid reports whether the payment method is supported.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodCheck:
		return true
	default:
		return false
	}
}

// Payment represents money received against a reservation.
type Payment struct {
	ID            string        `json:"id"             db:"id"`
	ReservationID string        `json:"reservation_id" db:"reservation_id"`
	CustomerID    string        `json:"customer_id"    db:"customer_id"`
	AmountCents   int64         `json:"amount_cents"   db:"amount_cents"`
	Method        PaymentMethod `json:"method"         db:"method"`
	PaidAt        time.Time     `json:"paid_at"        db:"paid_at"`
	Note          *string       `json:"note,omitempty" db:"note"`
	Dirty         bool          `json:"-"              db:"dirty"`
	CreatedAt     time.Time     `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"     db:"updated_at"`
}

// CreatePaymentRequest represents parameters to record a Payment.
// PaidAt defaults to now when zero.
type CreatePaymentRequest struct {
	ReservationID string        `json:"reservation_id"`
	AmountCents   int64         `json:"amount_cents"`
	Method        PaymentMethod `json:"method"`
	PaidAt        time.Time     `json:"paid_at,omitempty"`
	Note          *string       `json:"note,omitempty"`
}

// PaymentsListOptions controls paging and filtering for listing payments.
type PaymentsListOptions struct {
	Limit         int
	Offset        int
	ReservationID *string
	CustomerID    *string
	From          *time.Time
	To            *time.Time
}

// Validate validates CreatePaymentRequest.
func (r *CreatePaymentRequest) Validate() error {
	if strings.TrimSpace(r.ReservationID) == "" {
		return errors.New("reservation_id is required")
	}
	if r.AmountCents <= 0 {
		return errors.New("amount_cents must be positive")
	}
	if !r.Method.Valid() {
		return errors.New("invalid payment method")
	}
	return nil
}
