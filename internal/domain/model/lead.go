package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const maxLeadMessageLen = 4000

// LeadStatus tracks a sales lead through its pipeline.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusAssigned  LeadStatus = "assigned"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusClosed    LeadStatus = "closed"
	LeadStatusRejected  LeadStatus = "rejected"
)

// Valid reports whether the lead status is supported.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusAssigned, LeadStatusContacted,
		LeadStatusClosed, LeadStatusRejected:
		return true
	default:
		return false
	}
}

// ParseLeadStatus normalizes a status string and reports whether it is supported.
func ParseLeadStatus(value string) (LeadStatus, bool) {
	s := LeadStatus(strings.ToLower(strings.TrimSpace(value)))
	if s.Valid() {
		return s, true
	}
	return "", false
}

// Lead represents an inbound sales inquiry from the public listings site.
//
// SourceDomain is the registrable domain derived from the referrer URL so
// leads can be grouped by acquisition channel regardless of deep-link path.
type Lead struct {
	ID           string     `json:"id"                      db:"id"`
	FullName     string     `json:"full_name"               db:"full_name"`
	Phone        string     `json:"phone"                   db:"phone"`
	Email        *string    `json:"email,omitempty"         db:"email"`
	Message      *string    `json:"message,omitempty"       db:"message"`
	CarID        *string    `json:"car_id,omitempty"        db:"car_id"`
	Referrer     *string    `json:"referrer,omitempty"      db:"referrer"`
	SourceDomain *string    `json:"source_domain,omitempty" db:"source_domain"`
	Status       LeadStatus `json:"status"                  db:"status"`
	AssignedTo   *string    `json:"assigned_to,omitempty"   db:"assigned_to"`
	Dirty        bool       `json:"-"                       db:"dirty"`
	CreatedAt    time.Time  `json:"created_at"              db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"              db:"updated_at"`
}

// CreateLeadRequest represents a public lead submission.
type CreateLeadRequest struct {
	FullName string  `json:"full_name"`
	Phone    string  `json:"phone"`
	Email    *string `json:"email,omitempty"`
	Message  *string `json:"message,omitempty"`
	CarID    *string `json:"car_id,omitempty"`
	Referrer *string `json:"referrer,omitempty"`
}

// UpdateLeadRequest represents admin-side lead updates.
type UpdateLeadRequest struct {
	Status     *LeadStatus `json:"status,omitempty"`
	AssignedTo *string     `json:"assigned_to,omitempty"`
}

// LeadsListOptions controls paging and filtering for listing leads.
type LeadsListOptions struct {
	Limit        int
	Offset       int
	Status       *LeadStatus
	AssignedTo   *string
	SourceDomain *string
	Sort         string // allowed: "created_at"
	Dir          string // allowed: "asc", "desc"
}

// Validate validates CreateLeadRequest.
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.FullName) == "" {
		return errors.New("full_name is required and cannot be empty")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return errors.New("phone is required")
	}
	if r.Message != nil && utf8.RuneCountInString(*r.Message) > maxLeadMessageLen {
		return errors.New("message cannot exceed 4000 characters")
	}
	return nil
}

// Validate validates UpdateLeadRequest.
func (r *UpdateLeadRequest) Validate() error {
	if r.Status != nil && !r.Status.Valid() {
		return errors.New("invalid status")
	}
	return nil
}

// LeadRule routes inbound leads. Expression is a JMESPath expression
// evaluated against the lead JSON document; the first enabled rule (by
// ascending priority) whose expression evaluates truthy assigns the lead.
type LeadRule struct {
	ID         string    `json:"id"                    db:"id"`
	Name       string    `json:"name"                  db:"name"`
	Expression string    `json:"expression"            db:"expression"`
	AssignTo   string    `json:"assign_to"             db:"assign_to"`
	WebhookURL *string   `json:"webhook_url,omitempty" db:"webhook_url"`
	Priority   int       `json:"priority"              db:"priority"`
	Enabled    bool      `json:"enabled"               db:"enabled"`
	CreatedAt  time.Time `json:"created_at"            db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"            db:"updated_at"`
}

// CreateLeadRuleRequest represents parameters to create a LeadRule.
type CreateLeadRuleRequest struct {
	Name       string  `json:"name"`
	Expression string  `json:"expression"`
	AssignTo   string  `json:"assign_to"`
	WebhookURL *string `json:"webhook_url,omitempty"`
	Priority   int     `json:"priority"`
	Enabled    *bool   `json:"enabled,omitempty"`
}

// Validate validates CreateLeadRuleRequest. Expression syntax is checked by
// the service layer, which owns the JMESPath evaluator.
func (r *CreateLeadRuleRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required and cannot be empty")
	}
	if strings.TrimSpace(r.Expression) == "" {
		return errors.New("expression is required")
	}
	if strings.TrimSpace(r.AssignTo) == "" {
		return errors.New("assign_to is required")
	}
	return nil
}
