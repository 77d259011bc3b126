// Package commission prices dealer commission for rentals using tiered
// percentage rules by rental duration.
package commission

import (
	"errors"
	"math"
)

// Rate tiers by rental duration in days.
const (
	shortTermMaxDays  = 6
	mediumTermMaxDays = 23
	extensionBlock    = 30 // days per extension block

	shortTermPercent  = 15.0
	mediumTermPercent = 10.0
	longTermPercent   = 7.0
	extensionPercent  = 7.0 // added pro-rata per 30-day block beyond the first
)

var (
	// ErrInvalidDays is returned when the rental duration is not positive.
	ErrInvalidDays = errors.New("rental duration must be a positive number of days")
	// ErrNegativePrice is returned when the price is negative.
	ErrNegativePrice = errors.New("price cannot be negative")
)

// Result holds the priced commission for a rental.
type Result struct {
	// Percent is the total commission percentage, including the pro-rata
	// extension component.
	Percent float64 `json:"percent"`
	// AmountCents is Percent applied to the rental price, rounded to the
	// nearest cent.
	AmountCents int64 `json:"amount_cents"`
}

// BasePercent returns the tiered commission percentage for a rental of the
// given duration, without the extension component:
// up to 6 days 15%, 7-23 days 10%, 24 days and over 7%.
func BasePercent(days int) (float64, error) {
	if days <= 0 {
		return 0, ErrInvalidDays
	}
	switch {
	case days <= shortTermMaxDays:
		return shortTermPercent, nil
	case days <= mediumTermMaxDays:
		return mediumTermPercent, nil
	default:
		return longTermPercent, nil
	}
}

// Percent returns the total commission percentage for a rental of the given
// duration. Beyond the first 30 days an additional 7% accrues pro-rata per
// 30-day block, so a 45-day rental carries 7% + 7%*(15/30) = 10.5%.
func Percent(days int) (float64, error) {
	base, err := BasePercent(days)
	if err != nil {
		return 0, err
	}
	if days <= extensionBlock {
		return base, nil
	}
	extra := extensionPercent * float64(days-extensionBlock) / float64(extensionBlock)
	return base + extra, nil
}

// Calculate prices the commission for a rental of the given duration and
// total price. priceCents is the full rental price in cents.
func Calculate(days int, priceCents int64) (Result, error) {
	pct, err := Percent(days)
	if err != nil {
		return Result{}, err
	}
	if priceCents < 0 {
		return Result{}, ErrNegativePrice
	}
	amount := int64(math.Round(float64(priceCents) * pct / 100))
	return Result{Percent: pct, AmountCents: amount}, nil
}
