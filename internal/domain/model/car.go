//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxPlateLen = 16
	maxNotesLen = 2000
)

// CarStatus tracks where a vehicle is in its lifecycle.
type CarStatus string

const (
	CarStatusAvailable   CarStatus = "available"
	CarStatusRented      CarStatus = "rented"
	CarStatusMaintenance CarStatus = "maintenance"
	CarStatusSold        CarStatus = "sold"
)

// Valid reports whether the car status is supported.
func (s CarStatus) Valid() bool {
	switch s {
	case CarStatusAvailable, CarStatusRented, CarStatusMaintenance, CarStatusSold:
		return true
	default:
		return false
	}
}

// ParseCarStatus normalizes a status string and reports whether it is supported.
func ParseCarStatus(value string) (CarStatus, bool) {
	s := CarStatus(strings.ToLower(strings.TrimSpace(value)))
	if s.Valid() {
		return s, true
	}
	return "", false
}

// Car represents a vehicle in the fleet.
type Car struct {
	ID             string     `json:"id"                    db:"id"`
	Plate          string     `json:"plate"                 db:"plate"`
	BrandID        string     `json:"brand_id"              db:"brand_id"`
	ModelID        string     `json:"model_id"              db:"model_id"`
	BrandName      string     `json:"brand_name"            db:"brand_name"`
	ModelName      string     `json:"model_name"            db:"model_name"`
	Year           int        `json:"year"                  db:"year"`
	Color          *string    `json:"color,omitempty"       db:"color"`
	MileageKM      int        `json:"mileage_km"            db:"mileage_km"`
	DailyRateCents int64      `json:"daily_rate_cents"      db:"daily_rate_cents"`
	Status         CarStatus  `json:"status"                db:"status"`
	SupplierID     *string    `json:"supplier_id,omitempty" db:"supplier_id"`
	Notes          *string    `json:"notes,omitempty"       db:"notes"`
	Dirty          bool       `json:"-"                     db:"dirty"`
	SoldAt         *time.Time `json:"sold_at,omitempty"     db:"sold_at"`
	CreatedAt      time.Time  `json:"created_at"            db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"            db:"updated_at"`
}

// CreateCarRequest represents parameters to create a Car.
type CreateCarRequest struct {
	Plate          string    `json:"plate"`
	BrandID        string    `json:"brand_id"`
	ModelID        string    `json:"model_id"`
	BrandName      string    `json:"brand_name"`
	ModelName      string    `json:"model_name"`
	Year           int       `json:"year"`
	Color          *string   `json:"color,omitempty"`
	MileageKM      int       `json:"mileage_km"`
	DailyRateCents int64     `json:"daily_rate_cents"`
	Status         CarStatus `json:"status,omitempty"`
	SupplierID     *string   `json:"supplier_id,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
}

// UpdateCarRequest represents parameters to update a Car.
type UpdateCarRequest struct {
	Plate          *string    `json:"plate,omitempty"`
	Year           *int       `json:"year,omitempty"`
	Color          *string    `json:"color,omitempty"`
	MileageKM      *int       `json:"mileage_km,omitempty"`
	DailyRateCents *int64     `json:"daily_rate_cents,omitempty"`
	Status         *CarStatus `json:"status,omitempty"`
	SupplierID     *string    `json:"supplier_id,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// CarsListOptions controls paging and filtering for listing cars.
// Sort supports "created_at", "plate", "daily_rate_cents"; Dir supports
// "asc"/"desc". Q matches plate/brand/model via ILIKE substring.
type CarsListOptions struct {
	Limit        int
	Offset       int
	Q            *string
	Status       *CarStatus
	BrandID      *string
	MaxRateCents *int64
	Sort         string
	Dir          string
}

// Validate validates CreateCarRequest.
func (r *CreateCarRequest) Validate() error {
	plate := strings.TrimSpace(r.Plate)
	if plate == "" {
		return errors.New("plate is required and cannot be empty")
	}
	if utf8.RuneCountInString(plate) > maxPlateLen {
		return errors.New("plate cannot exceed 16 characters")
	}
	if strings.TrimSpace(r.BrandID) == "" || strings.TrimSpace(r.ModelID) == "" {
		return errors.New("brand_id and model_id are required")
	}
	if r.Year < 1950 || r.Year > time.Now().Year()+1 {
		return errors.New("year is out of range")
	}
	if r.MileageKM < 0 {
		return errors.New("mileage_km cannot be negative")
	}
	if r.DailyRateCents < 0 {
		return errors.New("daily_rate_cents cannot be negative")
	}
	if r.Notes != nil && utf8.RuneCountInString(*r.Notes) > maxNotesLen {
		return errors.New("notes cannot exceed 2000 characters")
	}
	if r.Status == "" {
		r.Status = CarStatusAvailable
	}
	if !r.Status.Valid() {
		return errors.New("invalid status")
	}
	return nil
}

// Validate validates UpdateCarRequest.
func (r *UpdateCarRequest) Validate() error {
	if r.Plate != nil && strings.TrimSpace(*r.Plate) == "" {
		return errors.New("plate cannot be empty")
	}
	if r.MileageKM != nil && *r.MileageKM < 0 {
		return errors.New("mileage_km cannot be negative")
	}
	if r.DailyRateCents != nil && *r.DailyRateCents < 0 {
		return errors.New("daily_rate_cents cannot be negative")
	}
	if r.Status != nil && !r.Status.Valid() {
		return errors.New("invalid status")
	}
	if r.Notes != nil && utf8.RuneCountInString(*r.Notes) > maxNotesLen {
		return errors.New("notes cannot exceed 2000 characters")
	}
	return nil
}
