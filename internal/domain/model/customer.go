package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const maxNameLen = 255

// Customer represents a rental customer.
type Customer struct {
	ID            string    `json:"id"                       db:"id"`
	FullName      string    `json:"full_name"                db:"full_name"`
	Phone         string    `json:"phone"                    db:"phone"`
	Email         *string   `json:"email,omitempty"          db:"email"`
	LicenseNumber *string   `json:"license_number,omitempty" db:"license_number"`
	Notes         *string   `json:"notes,omitempty"          db:"notes"`
	Dirty         bool      `json:"-"                        db:"dirty"`
	CreatedAt     time.Time `json:"created_at"               db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"               db:"updated_at"`
}

// CreateCustomerRequest represents parameters to create a Customer.
type CreateCustomerRequest struct {
	FullName      string  `json:"full_name"`
	Phone         string  `json:"phone"`
	Email         *string `json:"email,omitempty"`
	LicenseNumber *string `json:"license_number,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// UpdateCustomerRequest represents parameters to update a Customer.
type UpdateCustomerRequest struct {
	FullName      *string `json:"full_name,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Email         *string `json:"email,omitempty"`
	LicenseNumber *string `json:"license_number,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// Validate validates CreateCustomerRequest.
func (r *CreateCustomerRequest) Validate() error {
	name := strings.TrimSpace(r.FullName)
	if name == "" {
		return errors.New("full_name is required and cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return errors.New("full_name cannot exceed 255 characters")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return errors.New("phone is required")
	}
	return nil
}

// Validate validates UpdateCustomerRequest.
func (r *UpdateCustomerRequest) Validate() error {
	if r.FullName != nil && strings.TrimSpace(*r.FullName) == "" {
		return errors.New("full_name cannot be empty")
	}
	if r.Phone != nil && strings.TrimSpace(*r.Phone) == "" {
		return errors.New("phone cannot be empty")
	}
	return nil
}
