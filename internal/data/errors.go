package data

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Shared sentinel errors for data-layer repositories.
var (
	ErrCarNotFound      = errors.New("car not found")
	ErrCarPlateExists   = errors.New("car plate already exists")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrSupplierNotFound = errors.New("supplier not found")

	ErrReservationNotFound = errors.New("reservation not found")
	ErrPaymentNotFound     = errors.New("payment not found")

	ErrLeadNotFound     = errors.New("lead not found")
	ErrLeadRuleNotFound = errors.New("lead rule not found")
	ErrLeadRuleExists   = errors.New("lead rule name already exists")

	// ErrForeignKey is returned when a write references a missing parent row.
	ErrForeignKey = errors.New("referenced row does not exist")
)

// isUniqueViolation reports whether err is a Postgres unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// isForeignKeyViolation reports whether err is a Postgres FK constraint violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
