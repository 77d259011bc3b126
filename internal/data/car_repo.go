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

	"github.com/dealerops/rentd/internal/data/database"
	"github.com/dealerops/rentd/internal/data/pgxutil"
	"github.com/dealerops/rentd/internal/domain/model"
)

// CarRepo provides database operations for the vehicle fleet.
//
// Every write marks the row dirty so the next cloud sync run picks it up.
type CarRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewCarRepo creates a new CarRepo with real time provider.
func NewCarRepo(db *sql.DB) *CarRepo {
	return &CarRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewCarRepoWithTimeProvider creates a new CarRepo with a custom time provider (useful for tests).
func NewCarRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *CarRepo {
	return &CarRepo{DB: db, timeProvider: tp}
}

// Create inserts a new car.
func (r *CarRepo) Create(ctx context.Context, req *model.CreateCarRequest) (*model.Car, error) {
	if req == nil {
		return nil, errors.New("create car request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	var out model.Car
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO cars (
				id, plate, brand_id, model_id, brand_name, model_name, year, color,
				mileage_km, daily_rate_cents, status, supplier_id, notes, dirty, sold_at, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8,
				$9, $10, $11, $12, $13, TRUE, NULL, $14, $14
			) RETURNING `+carColumnList,
			uuid.NewString(),
			strings.ToUpper(strings.TrimSpace(req.Plate)),
			strings.TrimSpace(req.BrandID),
			strings.TrimSpace(req.ModelID),
			strings.TrimSpace(req.BrandName),
			strings.TrimSpace(req.ModelName),
			req.Year,
			req.Color,
			req.MileageKM,
			req.DailyRateCents,
			req.Status,
			req.SupplierID,
			req.Notes,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Car])
		return err
	}); err != nil {
		return nil, r.mapWriteErr(err, false)
	}
	return &out, nil
}

// GetByID retrieves a car by ID.
func (r *CarRepo) GetByID(ctx context.Context, id string) (*model.Car, error) {
	return r.getByQuery(ctx, carGetByIDQuery, "failed to get car by ID", id)
}

// GetByPlate retrieves a car by its license plate.
func (r *CarRepo) GetByPlate(ctx context.Context, plate string) (*model.Car, error) {
	return r.getByQuery(
		ctx,
		carGetByPlateQuery,
		"failed to get car by plate",
		strings.ToUpper(strings.TrimSpace(plate)),
	)
}

// List retrieves cars with optional filters, sorting and pagination.
func (r *CarRepo) List(ctx context.Context, opts model.CarsListOptions) ([]*model.Car, error) {
	limit, offset := normalizePage(opts.Limit, opts.Offset)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(carColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}
	if opts.Q != nil && strings.TrimSpace(*opts.Q) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("plate", database.ILike, "%"+strings.TrimSpace(*opts.Q)+"%"),
		))
	}
	if opts.Status != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("status", database.Equal, *opts.Status),
		))
	}
	if opts.BrandID != nil && strings.TrimSpace(*opts.BrandID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("brand_id", database.Equal, strings.TrimSpace(*opts.BrandID)),
		))
	}
	if opts.MaxRateCents != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("daily_rate_cents", database.LessThanOrEqual, *opts.MaxRateCents),
		))
	}
	sortCol, sortDir := validateSort(opts.Sort, opts.Dir, map[string]string{
		"created_at":       "created_at",
		"plate":            "plate",
		"daily_rate_cents": "daily_rate_cents",
	})
	queryOpts = append(queryOpts, database.WithOrderBy(sortCol, sortDir))

	query, args := database.BuildListQuery(database.NewListQueryOptions("cars", queryOpts...))

	var rowsOut []model.Car
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Car])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}

	res := make([]*model.Car, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Update updates fields of a car and marks it dirty. Setting the status to
// sold stamps sold_at.
func (r *CarRepo) Update(ctx context.Context, id string, req model.UpdateCarRequest) (*model.Car, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.Car
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		setClause, args := r.buildUpdateClause(req)
		if setClause == "" {
			rows, err := conn.Query(ctx, carGetByIDQuery, id)
			if err != nil {
				return err
			}
			defer rows.Close()
			var e error
			out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Car])
			return e
		}
		args = append(args, id)
		query := "UPDATE cars SET " + setClause +
			" WHERE id = $" + strconv.Itoa(len(args)) +
			" RETURNING " + carColumnList
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Car])
		return e
	})
	if err != nil {
		return nil, r.mapWriteErr(err, true)
	}
	return &out, nil
}

// UpdateStatus transitions a car's status and marks the row dirty.
func (r *CarRepo) UpdateStatus(ctx context.Context, id string, status model.CarStatus) (*model.Car, error) {
	s := status
	return r.Update(ctx, id, model.UpdateCarRequest{Status: &s})
}

// Delete deletes a car by ID.
func (r *CarRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM cars WHERE id = $1`, id)
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
		return false, fmt.Errorf("failed to delete car: %w", err)
	}
	return rows > 0, nil
}

// buildUpdateClause builds the SQL SET clause and args for updating a car.
// Any update bumps updated_at and flags the row for sync.
func (r *CarRepo) buildUpdateClause(req model.UpdateCarRequest) (string, []any) {
	setParts := make([]string, 0, 8)
	args := make([]any, 0, 10)
	nextIdx := func() int { return len(args) + 1 }

	if req.Plate != nil {
		setParts = append(setParts, fmt.Sprintf("plate = $%d", nextIdx()))
		args = append(args, strings.ToUpper(strings.TrimSpace(*req.Plate)))
	}
	if req.Year != nil {
		setParts = append(setParts, fmt.Sprintf("year = $%d", nextIdx()))
		args = append(args, *req.Year)
	}
	if req.Color != nil {
		setParts = append(setParts, fmt.Sprintf("color = $%d", nextIdx()))
		args = append(args, *req.Color)
	}
	if req.MileageKM != nil {
		setParts = append(setParts, fmt.Sprintf("mileage_km = $%d", nextIdx()))
		args = append(args, *req.MileageKM)
	}
	if req.DailyRateCents != nil {
		setParts = append(setParts, fmt.Sprintf("daily_rate_cents = $%d", nextIdx()))
		args = append(args, *req.DailyRateCents)
	}
	if req.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", nextIdx()))
		args = append(args, *req.Status)
		if *req.Status == model.CarStatusSold {
			setParts = append(setParts, fmt.Sprintf("sold_at = $%d", nextIdx()))
			args = append(args, r.timeProvider.Now().UTC())
		}
	}
	if req.SupplierID != nil {
		if strings.TrimSpace(*req.SupplierID) == "" {
			setParts = append(setParts, "supplier_id = NULL")
		} else {
			setParts = append(setParts, fmt.Sprintf("supplier_id = $%d", nextIdx()))
			args = append(args, *req.SupplierID)
		}
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

// --- helpers ---

const (
	carColumnList = `id, plate, brand_id, model_id, brand_name, model_name, year, color,
		mileage_km, daily_rate_cents, status, supplier_id, notes, dirty, sold_at, created_at, updated_at`

	carGetByIDQuery = `
		SELECT ` + carColumnList + `
		FROM cars
		WHERE id = $1`

	carGetByPlateQuery = `
		SELECT ` + carColumnList + `
		FROM cars
		WHERE plate = $1`
)

func carColumns() []string {
	return []string{
		"id",
		"plate",
		"brand_id",
		"model_id",
		"brand_name",
		"model_name",
		"year",
		"color",
		"mileage_km",
		"daily_rate_cents",
		"status",
		"supplier_id",
		"notes",
		"dirty",
		"sold_at",
		"created_at",
		"updated_at",
	}
}

func (r *CarRepo) getByQuery(ctx context.Context, q, errMsg string, args ...any) (*model.Car, error) {
	var car model.Car
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		car, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Car])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCarNotFound
		}
		return nil, fmt.Errorf("%s: %w", errMsg, err)
	}
	return &car, nil
}

func (r *CarRepo) mapWriteErr(err error, includeNotFound bool) error {
	if err == nil {
		return nil
	}
	if includeNotFound && errors.Is(err, pgx.ErrNoRows) {
		return ErrCarNotFound
	}
	if isUniqueViolation(err) {
		return ErrCarPlateExists
	}
	if isForeignKeyViolation(err) {
		return ErrForeignKey
	}
	return err
}
