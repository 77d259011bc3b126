package model

import (
	"errors"
	"strings"
	"time"
)

// ReservationStatus tracks the lifecycle of a rental.
type ReservationStatus string

const (
	ReservationStatusBooked    ReservationStatus = "booked"
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Valid reports whether the reservation status is supported.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusBooked, ReservationStatusActive,
		ReservationStatusCompleted, ReservationStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseReservationStatus normalizes a status string and reports whether it is supported.
func ParseReservationStatus(value string) (ReservationStatus, bool) {
	s := ReservationStatus(strings.ToLower(strings.TrimSpace(value)))
	if s.Valid() {
		return s, true
	}
	return "", false
}

// Reservation represents a car rental over a date window.
//
// TotalCents is DailyRateCents x duration in days. Commission fields are
// derived from the tiered commission rules at create/extend time and stored
// so historical reservations keep the rate they were priced with.
type Reservation struct {
	ID                string            `json:"id"                 db:"id"`
	CustomerID        string            `json:"customer_id"        db:"customer_id"`
	CarID             string            `json:"car_id"             db:"car_id"`
	StartDate         time.Time         `json:"start_date"         db:"start_date"`
	EndDate           time.Time         `json:"end_date"           db:"end_date"`
	DailyRateCents    int64             `json:"daily_rate_cents"   db:"daily_rate_cents"`
	TotalCents        int64             `json:"total_cents"        db:"total_cents"`
	CommissionPercent float64           `json:"commission_percent" db:"commission_percent"`
	CommissionCents   int64             `json:"commission_cents"   db:"commission_cents"`
	Status            ReservationStatus `json:"status"             db:"status"`
	Notes             *string           `json:"notes,omitempty"    db:"notes"`
	Dirty             bool              `json:"-"                  db:"dirty"`
	CreatedAt         time.Time         `json:"created_at"         db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"         db:"updated_at"`
}

// Days returns the rental duration in whole days, minimum 1.
// A same-day rental counts as one day.
func (r *Reservation) Days() int {
	return RentalDays(r.StartDate, r.EndDate)
}

// RentalDays computes the billable duration between two dates in whole days.
// Partial days round up and a same-day rental counts as one day.
func RentalDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	d := int((end.Sub(start) + 24*time.Hour - time.Nanosecond) / (24 * time.Hour))
	if d < 1 {
		d = 1
	}
	return d
}

// CreateReservationRequest represents parameters to create a Reservation.
// DailyRateCents defaults to the car's rate when omitted.
type CreateReservationRequest struct {
	CustomerID     string    `json:"customer_id"`
	CarID          string    `json:"car_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	DailyRateCents *int64    `json:"daily_rate_cents,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
}

// UpdateReservationRequest represents parameters to update a Reservation.
// Date changes go through the extend operation, not here.
type UpdateReservationRequest struct {
	Status *ReservationStatus `json:"status,omitempty"`
	Notes  *string            `json:"notes,omitempty"`
}

// ExtendReservationRequest moves the end date of a reservation forward.
type ExtendReservationRequest struct {
	NewEndDate time.Time `json:"new_end_date"`
}

// ReservationsListOptions controls paging and filtering for listing reservations.
type ReservationsListOptions struct {
	Limit      int
	Offset     int
	CustomerID *string
	CarID      *string
	Status     *ReservationStatus
	From       *time.Time
	To         *time.Time
	Sort       string // allowed: "created_at", "start_date"
	Dir        string // allowed: "asc", "desc"
}

// Validate validates CreateReservationRequest.
func (r *CreateReservationRequest) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return errors.New("customer_id is required")
	}
	if strings.TrimSpace(r.CarID) == "" {
		return errors.New("car_id is required")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return errors.New("start_date and end_date are required")
	}
	if r.EndDate.Before(r.StartDate) {
		return errors.New("end_date cannot be before start_date")
	}
	if r.DailyRateCents != nil && *r.DailyRateCents < 0 {
		return errors.New("daily_rate_cents cannot be negative")
	}
	return nil
}

// Validate validates UpdateReservationRequest.
func (r *UpdateReservationRequest) Validate() error {
	if r.Status != nil && !r.Status.Valid() {
		return errors.New("invalid status")
	}
	return nil
}

// Validate validates ExtendReservationRequest against the current reservation.
func (r *ExtendReservationRequest) Validate(current *Reservation) error {
	if current == nil {
		return errors.New("reservation is required")
	}
	if r.NewEndDate.IsZero() {
		return errors.New("new_end_date is required")
	}
	if !r.NewEndDate.After(current.EndDate) {
		return errors.New("new_end_date must be after the current end_date")
	}
	switch current.Status {
	case ReservationStatusBooked, ReservationStatusActive:
		return nil
	default:
		return errors.New("only booked or active reservations can be extended")
	}
}
