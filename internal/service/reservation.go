package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealerops/rentd/internal/core"
	"github.com/dealerops/rentd/internal/data"
	"github.com/dealerops/rentd/internal/domain/commission"
	"github.com/dealerops/rentd/internal/domain/model"
)

// ErrCarNotRentable is returned when booking a car that is sold or in maintenance.
var ErrCarNotRentable = errors.New("car is not rentable")

// Quote is a priced rental window before booking.
type Quote struct {
	Days              int     `json:"days"`
	DailyRateCents    int64   `json:"daily_rate_cents"`
	TotalCents        int64   `json:"total_cents"`
	CommissionPercent float64 `json:"commission_percent"`
	CommissionCents   int64   `json:"commission_cents"`
}

// ReservationServiceOptions groups dependencies for ReservationService.
type ReservationServiceOptions struct {
	Reservations core.ReservationRepository
	Cars         core.CarRepository
	Logger       *slog.Logger
}

// ReservationService books, extends and transitions rentals. All pricing
// goes through the commission package at booking time; stored reservations
// keep the rate they were priced with.
type ReservationService struct {
	reservations core.ReservationRepository
	cars         core.CarRepository
	logger       *slog.Logger
}

// NewReservationService constructs a new ReservationService.
func NewReservationService(opts ReservationServiceOptions) *ReservationService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ReservationService{
		reservations: opts.Reservations,
		cars:         opts.Cars,
		logger:       logger.With("component", "reservations"),
	}
}

// QuoteWindow prices a rental window at the given daily rate.
func (s *ReservationService) QuoteWindow(start, end time.Time, dailyRateCents int64) (*Quote, error) {
	days := model.RentalDays(start, end)
	total := dailyRateCents * int64(days)
	priced, err := commission.Calculate(days, total)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Days:              days,
		DailyRateCents:    dailyRateCents,
		TotalCents:        total,
		CommissionPercent: priced.Percent,
		CommissionCents:   priced.AmountCents,
	}, nil
}

// QuoteForCar prices a rental window at a car's current daily rate.
func (s *ReservationService) QuoteForCar(ctx context.Context, carID string, start, end time.Time) (*Quote, error) {
	car, err := s.cars.GetByID(ctx, carID)
	if err != nil {
		return nil, err
	}
	return s.QuoteWindow(start, end, car.DailyRateCents)
}

// Create books a reservation. The car must be rentable; the rate defaults to
// the car's current daily rate when the request doesn't override it.
func (s *ReservationService) Create(ctx context.Context, req *model.CreateReservationRequest) (*model.Reservation, error) {
	if req == nil {
		return nil, errors.New("create reservation request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	car, err := s.cars.GetByID(ctx, req.CarID)
	if err != nil {
		return nil, err
	}
	switch car.Status {
	case model.CarStatusSold, model.CarStatusMaintenance:
		return nil, ErrCarNotRentable
	case model.CarStatusAvailable, model.CarStatusRented:
		// Rented is fine: the window overlap check decides availability.
	}

	rate := car.DailyRateCents
	if req.DailyRateCents != nil {
		rate = *req.DailyRateCents
	}

	quote, err := s.QuoteWindow(req.StartDate, req.EndDate, rate)
	if err != nil {
		return nil, err
	}

	reservation, err := s.reservations.Create(ctx, data.CreateReservationParams{
		CustomerID:        req.CustomerID,
		CarID:             req.CarID,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		DailyRateCents:    rate,
		TotalCents:        quote.TotalCents,
		CommissionPercent: quote.CommissionPercent,
		CommissionCents:   quote.CommissionCents,
		Notes:             req.Notes,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "reservation booked",
		"reservation_id", reservation.ID,
		"car_id", reservation.CarID,
		"days", quote.Days,
		"total_cents", quote.TotalCents,
		"commission_percent", quote.CommissionPercent)
	return reservation, nil
}

// GetByID retrieves a reservation by ID.
func (s *ReservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

// List returns reservations matching the options.
func (s *ReservationService) List(ctx context.Context, opts model.ReservationsListOptions) ([]*model.Reservation, error) {
	return s.reservations.List(ctx, opts)
}

// Update updates status and/or notes. Status transitions to active/completed/
// cancelled also move the car between rented and available.
func (s *ReservationService) Update(ctx context.Context, id string, req model.UpdateReservationRequest) (*model.Reservation, error) {
	reservation, err := s.reservations.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if req.Status != nil {
		if err := s.syncCarStatus(ctx, reservation); err != nil {
			return nil, err
		}
	}
	return reservation, nil
}

// Extend moves the end date forward and re-prices the whole rental at its
// stored daily rate, so the commission tier reflects the new total duration.
func (s *ReservationService) Extend(ctx context.Context, id string, req model.ExtendReservationRequest) (*model.Reservation, error) {
	current, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(current); err != nil {
		return nil, err
	}

	quote, err := s.QuoteWindow(current.StartDate, req.NewEndDate, current.DailyRateCents)
	if err != nil {
		return nil, err
	}

	extended, err := s.reservations.ExtendDates(
		ctx, id, req.NewEndDate, quote.TotalCents, quote.CommissionPercent, quote.CommissionCents,
	)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "reservation extended",
		"reservation_id", id,
		"days", quote.Days,
		"commission_percent", quote.CommissionPercent)
	return extended, nil
}

// Delete deletes a reservation.
func (s *ReservationService) Delete(ctx context.Context, id string) (bool, error) {
	return s.reservations.Delete(ctx, id)
}

// Rollover advances reservation lifecycles against the clock: booked
// reservations whose window has opened become active, active ones whose
// window has closed become completed. The scheduler runs this daily.
func (s *ReservationService) Rollover(ctx context.Context, now time.Time) (int, error) {
	changed := 0

	booked := model.ReservationStatusBooked
	toActivate, err := s.reservations.List(ctx, model.ReservationsListOptions{
		Status: &booked,
		To:     &now,
		Limit:  500,
	})
	if err != nil {
		return 0, fmt.Errorf("list booked reservations: %w", err)
	}
	for _, r := range toActivate {
		if r.StartDate.After(now) {
			continue
		}
		status := model.ReservationStatusActive
		if _, err := s.Update(ctx, r.ID, model.UpdateReservationRequest{Status: &status}); err != nil {
			return changed, err
		}
		changed++
	}

	active := model.ReservationStatusActive
	toComplete, err := s.reservations.List(ctx, model.ReservationsListOptions{
		Status: &active,
		Limit:  500,
	})
	if err != nil {
		return changed, fmt.Errorf("list active reservations: %w", err)
	}
	for _, r := range toComplete {
		if !r.EndDate.Before(now) {
			continue
		}
		status := model.ReservationStatusCompleted
		if _, err := s.Update(ctx, r.ID, model.UpdateReservationRequest{Status: &status}); err != nil {
			return changed, err
		}
		changed++
	}

	if changed > 0 {
		s.logger.InfoContext(ctx, "reservations rolled over", "changed", changed)
	}
	return changed, nil
}

// syncCarStatus mirrors a reservation transition onto the car. Sold and
// maintenance cars are left alone.
func (s *ReservationService) syncCarStatus(ctx context.Context, r *model.Reservation) error {
	car, err := s.cars.GetByID(ctx, r.CarID)
	if err != nil {
		return err
	}
	if car.Status == model.CarStatusSold || car.Status == model.CarStatusMaintenance {
		return nil
	}

	var target model.CarStatus
	switch r.Status {
	case model.ReservationStatusActive:
		target = model.CarStatusRented
	case model.ReservationStatusCompleted, model.ReservationStatusCancelled:
		target = model.CarStatusAvailable
	case model.ReservationStatusBooked:
		return nil
	default:
		return nil
	}
	if car.Status == target {
		return nil
	}
	_, err = s.cars.UpdateStatus(ctx, car.ID, target)
	return err
}
