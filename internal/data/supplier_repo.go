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

// SupplierRepo provides database operations for suppliers.
type SupplierRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewSupplierRepo creates a new SupplierRepo with real time provider.
func NewSupplierRepo(db *sql.DB) *SupplierRepo {
	return &SupplierRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewSupplierRepoWithTimeProvider creates a new SupplierRepo with a custom time provider.
func NewSupplierRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *SupplierRepo {
	return &SupplierRepo{DB: db, timeProvider: tp}
}

// Create inserts a new supplier.
func (r *SupplierRepo) Create(ctx context.Context, req *model.CreateSupplierRequest) (*model.Supplier, error) {
	if req == nil {
		return nil, errors.New("create supplier request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	var out model.Supplier
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO suppliers (
				id, name, phone, email, notes, dirty, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, TRUE, $6, $6
			) RETURNING `+supplierColumnList,
			uuid.NewString(),
			strings.TrimSpace(req.Name),
			req.Phone,
			req.Email,
			req.Notes,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Supplier])
		return err
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByID retrieves a supplier by ID.
func (r *SupplierRepo) GetByID(ctx context.Context, id string) (*model.Supplier, error) {
	var out model.Supplier
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, supplierGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Supplier])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("failed to get supplier by ID: %w", err)
	}
	return &out, nil
}

// List retrieves suppliers with pagination.
func (r *SupplierRepo) List(ctx context.Context, limit, offset int) ([]*model.Supplier, error) {
	limit, offset = normalizePage(limit, offset)

	var rowsOut []model.Supplier
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, supplierListQuery, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Supplier])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}

	res := make([]*model.Supplier, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Update updates fields of a supplier and marks it dirty.
func (r *SupplierRepo) Update(ctx context.Context, id string, req model.UpdateSupplierRequest) (*model.Supplier, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.Supplier
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		setClause, args := r.buildUpdateClause(req)
		if setClause == "" {
			rows, err := conn.Query(ctx, supplierGetByIDQuery, id)
			if err != nil {
				return err
			}
			defer rows.Close()
			var e error
			out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Supplier])
			return e
		}
		args = append(args, id)
		query := "UPDATE suppliers SET " + setClause +
			" WHERE id = $" + strconv.Itoa(len(args)) +
			" RETURNING " + supplierColumnList
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Supplier])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, err
	}
	return &out, nil
}

// Delete deletes a supplier by ID.
func (r *SupplierRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
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
		return false, fmt.Errorf("failed to delete supplier: %w", err)
	}
	return rows > 0, nil
}

func (r *SupplierRepo) buildUpdateClause(req model.UpdateSupplierRequest) (string, []any) {
	setParts := make([]string, 0, 4)
	args := make([]any, 0, 6)
	nextIdx := func() int { return len(args) + 1 }

	if req.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", nextIdx()))
		args = append(args, strings.TrimSpace(*req.Name))
	}
	if req.Phone != nil {
		setParts = append(setParts, fmt.Sprintf("phone = $%d", nextIdx()))
		args = append(args, *req.Phone)
	}
	if req.Email != nil {
		setParts = append(setParts, fmt.Sprintf("email = $%d", nextIdx()))
		args = append(args, *req.Email)
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
	supplierColumnList = `id, name, phone, email, notes, dirty, created_at, updated_at`

	supplierGetByIDQuery = `
		SELECT ` + supplierColumnList + `
		FROM suppliers
		WHERE id = $1`

	supplierListQuery = `
		SELECT ` + supplierColumnList + `
		FROM suppliers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
)
