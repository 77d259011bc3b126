// Package core defines the ports between the service layer and its adapters.
// Services depend on these interfaces, not on concrete repositories.
package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dealerops/rentd/internal/data"
	"github.com/dealerops/rentd/internal/domain/model"
)

// CarRepository defines the interface for fleet data operations.
type CarRepository interface {
	Create(ctx context.Context, req *model.CreateCarRequest) (*model.Car, error)
	GetByID(ctx context.Context, id string) (*model.Car, error)
	GetByPlate(ctx context.Context, plate string) (*model.Car, error)
	List(ctx context.Context, opts model.CarsListOptions) ([]*model.Car, error)
	Update(ctx context.Context, id string, req model.UpdateCarRequest) (*model.Car, error)
	UpdateStatus(ctx context.Context, id string, status model.CarStatus) (*model.Car, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// CustomerRepository defines the interface for customer data operations.
type CustomerRepository interface {
	Create(ctx context.Context, req *model.CreateCustomerRequest) (*model.Customer, error)
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	List(ctx context.Context, limit, offset int, q *string) ([]*model.Customer, error)
	Update(ctx context.Context, id string, req model.UpdateCustomerRequest) (*model.Customer, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// SupplierRepository defines the interface for supplier data operations.
type SupplierRepository interface {
	Create(ctx context.Context, req *model.CreateSupplierRequest) (*model.Supplier, error)
	GetByID(ctx context.Context, id string) (*model.Supplier, error)
	List(ctx context.Context, limit, offset int) ([]*model.Supplier, error)
	Update(ctx context.Context, id string, req model.UpdateSupplierRequest) (*model.Supplier, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ReservationRepository defines the interface for reservation data operations.
type ReservationRepository interface {
	Create(ctx context.Context, p data.CreateReservationParams) (*model.Reservation, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	List(ctx context.Context, opts model.ReservationsListOptions) ([]*model.Reservation, error)
	Update(ctx context.Context, id string, req model.UpdateReservationRequest) (*model.Reservation, error)
	ExtendDates(
		ctx context.Context,
		id string,
		newEndDate time.Time,
		totalCents int64,
		commissionPercent float64,
		commissionCents int64,
	) (*model.Reservation, error)
	Delete(ctx context.Context, id string) (bool, error)
	MonthlyBilling(ctx context.Context, from, to time.Time) ([]data.MonthlyBillingRow, error)
}

// PaymentRepository defines the interface for payment data operations.
type PaymentRepository interface {
	Create(ctx context.Context, req *model.CreatePaymentRequest) (*model.Payment, error)
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	List(ctx context.Context, opts model.PaymentsListOptions) ([]*model.Payment, error)
	Delete(ctx context.Context, id string) (bool, error)
	MonthlyRevenue(ctx context.Context, from, to time.Time) ([]data.MonthlyRevenueRow, error)
	SumForReservation(ctx context.Context, reservationID string) (int64, error)
}

// LeadRepository defines the interface for lead data operations.
type LeadRepository interface {
	Create(ctx context.Context, p data.CreateLeadParams) (*model.Lead, error)
	GetByID(ctx context.Context, id string) (*model.Lead, error)
	List(ctx context.Context, opts model.LeadsListOptions) ([]*model.Lead, error)
	Update(ctx context.Context, id string, req model.UpdateLeadRequest) (*model.Lead, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// LeadRuleRepository defines the interface for lead routing rule operations.
type LeadRuleRepository interface {
	Create(ctx context.Context, req *model.CreateLeadRuleRequest) (*model.LeadRule, error)
	GetByID(ctx context.Context, id string) (*model.LeadRule, error)
	ListEnabled(ctx context.Context) ([]*model.LeadRule, error)
	ListAll(ctx context.Context) ([]*model.LeadRule, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (*model.LeadRule, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ScheduledTaskRepository defines the interface for recurring task operations.
type ScheduledTaskRepository interface {
	FindDueTx(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]model.ScheduledTask, error)
	MarkQueuedTx(ctx context.Context, tx *sql.Tx, id string, now time.Time) (bool, error)
	UpsertByTaskName(ctx context.Context, taskName string, interval time.Duration, payload json.RawMessage) error
	DeleteByTaskName(ctx context.Context, taskName string) (bool, error)
	TryWithTaskLock(ctx context.Context, taskName string, fn func(context.Context, *sql.Tx) error) (bool, error)
}

// TableDumper exports and restores whole tables for backup files.
type TableDumper interface {
	DumpTable(ctx context.Context, table string) ([]map[string]any, error)
	ReplaceTableRows(ctx context.Context, table string, rows []map[string]any) error
	ReplaceAllTables(ctx context.Context, tables []string, data map[string][]map[string]any) error
}

// CacheRepository defines the interface for caching operations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) (bool, error)

	// DeleteByPrefix removes every key under a prefix and returns the count.
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)

	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	// Returns true if the key was set, false if it already existed.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// RuleEvaluator evaluates a lead routing expression against a lead document.
type RuleEvaluator interface {
	Matches(expression string, doc map[string]any) (bool, error)
	CheckSyntax(expression string) error
}
