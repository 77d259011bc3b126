package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealerops/rentd/internal/data/pgxutil"
	"github.com/dealerops/rentd/internal/domain/model"
)

// CustomerRepo provides database operations for customers.
type CustomerRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewCustomerRepo creates a new CustomerRepo with real time provider.
func NewCustomerRepo(db *sql.DB) *CustomerRepo {
	return &CustomerRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewCustomerRepoWithTimeProvider creates a new CustomerRepo with a custom time provider.
func NewCustomerRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *CustomerRepo {
	return &CustomerRepo{DB: db, timeProvider: tp}
}

// Create inserts a new customer.
func (r *CustomerRepo) Create(ctx context.Context, req *model.CreateCustomerRequest) (*model.Customer, error) {
	if req == nil {
		return nil, errors.New("create customer request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	var out model.Customer
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO customers (
				id, full_name, phone, email, license_number, notes, dirty, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, TRUE, $7, $7
			) RETURNING `+customerColumnList,
			uuid.NewString(),
			strings.TrimSpace(req.FullName),
			strings.TrimSpace(req.Phone),
			req.Email,
			req.LicenseNumber,
			req.Notes,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Customer])
		return err
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByID retrieves a customer by ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	var out model.Customer
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, customerGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Customer])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer by ID: %w", err)
	}
	return &out, nil
}

// List retrieves customers with pagination. Q matches full_name or phone.
func (r *CustomerRepo) List(ctx context.Context, limit, offset int, q *string) ([]*model.Customer, error) {
	limit, offset = normalizePage(limit, offset)

	query := customerListQuery
	args := []any{limit, offset}
	if q != nil && strings.TrimSpace(*q) != "" {
		query = customerSearchQuery
		args = append(args, "%"+strings.TrimSpace(*q)+"%")
	}

	var rowsOut []model.Customer
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Customer])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	res := make([]*model.Customer, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Update updates fields of a customer and marks it dirty.
func (r *CustomerRepo) Update(ctx context.Context, id string, req model.UpdateCustomerRequest) (*model.Customer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.Customer
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		setClause, args := r.buildUpdateClause(req)
		if setClause == "" {
			rows, err := conn.Query(ctx, customerGetByIDQuery, id)
			if err != nil {
				return err
			}
			defer rows.Close()
			var e error
			out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Customer])
			return e
		}
		args = append(args, id)
		query := "UPDATE customers SET " + setClause +
			" WHERE id = $" + strconv.Itoa(len(args)) +
			" RETURNING " + customerColumnList
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Customer])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &out, nil
}

// Delete deletes a customer by ID. Customers with reservations cannot be
// deleted; the FK violation maps to ErrForeignKey.
func (r *CustomerRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, ErrForeignKey
		}
		return false, fmt.Errorf("failed to delete customer: %w", err)
	}
	return rows > 0, nil
}

func (r *CustomerRepo) buildUpdateClause(req model.UpdateCustomerRequest) (string, []any) {
	setParts := make([]string, 0, 5)
	args := make([]any, 0, 7)
	nextIdx := func() int { return len(args) + 1 }

	if req.FullName != nil {
		setParts = append(setParts, fmt.Sprintf("full_name = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.FullName))
	}
	if req.Phone != nil {
		setParts = append(setParts, fmt.Sprintf("phone = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.Phone))
	}
	if req.Email != nil {
		setParts = append(setParts, fmt.Sprintf("email = $%d", nextIdx()))
		args = append(args, *req.Email)
	}
	if req.LicenseNumber != nil {
		setParts = append(setParts, fmt.Sprintf("license_number = $%d", nextIdx()))
		args = append(args, *req.LicenseNumber)
	}
	if req.Notes != nil {
		setParts = append(setParts, fmt.Sprintf("notes = $%d", nextIdx()))
		args = append(args, *req.Notes)
	}

	if len(setParts) == 0 {
		return "", nil
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", nextIdx()))
	args = append(args, r.timeProvider.Now().UTC())
	setParts = append(setParts, "dirty = TRUE")

	return strings.Join(setParts, ", "), args
}

const (
	customerColumnList = `id, full_name, phone, email, license_number, notes, dirty, created_at, updated_at`

	customerGetByIDQuery = `
		SELECT ` + customerColumnList + `
		FROM customers
		WHERE id = $1`

	customerListQuery = `
		SELECT ` + customerColumnList + `
		FROM customers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	customerSearchQuery = `
		SELECT ` + customerColumnList + `
		FROM customers
		WHERE full_name ILIKE $3 OR phone ILIKE $3
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
)
