package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealerops/rentd/internal/data/database"
	"github.com/dealerops/rentd/internal/data/pgxutil"
	"github.com/dealerops/rentd/internal/domain/model"
)

// ErrCarUnavailable is returned when a reservation window overlaps an
// existing booked or active reservation for the same car.
var ErrCarUnavailable = errors.New("car is not available for the requested dates")

// ReservationRepo provides database operations for reservations.
type ReservationRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewReservationRepo creates a new ReservationRepo with real time provider.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
	return &ReservationRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewReservationRepoWithTimeProvider creates a new ReservationRepo with a custom time provider.
func NewReservationRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ReservationRepo {
	return &ReservationRepo{DB: db, timeProvider: tp}
}

// CreateReservationParams carries the priced reservation the service layer computed.
type CreateReservationParams struct {
	CustomerID        string
	CarID             string
	StartDate         time.Time
	EndDate           time.Time
	DailyRateCents    int64
	TotalCents        int64
	CommissionPercent float64
	CommissionCents   int64
	Notes             *string
}

// Create inserts a reservation after verifying no overlapping booked or
// active reservation exists for the car. The check and the insert run in one
// transaction so two concurrent bookings cannot both pass.
func (r *ReservationRepo) Create(ctx context.Context, p CreateReservationParams) (*model.Reservation, error) {
	now := r.timeProvider.Now().UTC()
	var out model.Reservation
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		var overlaps int
		if err := tx.QueryRow(ctx, reservationOverlapQuery,
			p.CarID, p.StartDate, p.EndDate,
		).Scan(&overlaps); err != nil {
			return err
		}
		if overlaps > 0 {
			return ErrCarUnavailable
		}

		rows, err := tx.Query(ctx, `
			INSERT INTO reservations (
				id, customer_id, car_id, start_date, end_date, daily_rate_cents,
				total_cents, commission_percent, commission_cents, status, notes,
				dirty, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7, $8, $9, $10, $11,
				TRUE, $12, $12
			) RETURNING `+reservationColumnList,
			uuid.NewString(),
			p.CustomerID,
			p.CarID,
			p.StartDate.UTC(),
			p.EndDate.UTC(),
			p.DailyRateCents,
			p.TotalCents,
			p.CommissionPercent,
			p.CommissionCents,
			model.ReservationStatusBooked,
			p.Notes,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Reservation])
		return err
	})
	if err != nil {
		if errors.Is(err, ErrCarUnavailable) {
			return nil, ErrCarUnavailable
		}
		if isForeignKeyViolation(err) {
			return nil, ErrForeignKey
		}
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a reservation by ID.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	var out model.Reservation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, reservationGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Reservation])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation by ID: %w", err)
	}
	return &out, nil
}

// List retrieves reservations with optional filters, sorting and pagination.
func (r *ReservationRepo) List(ctx context.Context, opts model.ReservationsListOptions) ([]*model.Reservation, error) {
	limit, offset := normalizePage(opts.Limit, opts.Offset)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(reservationColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}
	if opts.CustomerID != nil && strings.TrimSpace(*opts.CustomerID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("customer_id", database.Equal, strings.TrimSpace(*opts.CustomerID)),
		))
	}
	if opts.CarID != nil && strings.TrimSpace(*opts.CarID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("car_id", database.Equal, strings.TrimSpace(*opts.CarID)),
		))
	}
	if opts.Status != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("status", database.Equal, *opts.Status),
		))
	}
	if opts.From != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("start_date", database.GreaterThanOrEqual, opts.From.UTC()),
		))
	}
	if opts.To != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("start_date", database.LessThanOrEqual, opts.To.UTC()),
		))
	}
	sortCol, sortDir := validateSort(opts.Sort, opts.Dir, map[string]string{
		"created_at": "created_at",
		"start_date": "start_date",
	})
	queryOpts = append(queryOpts, database.WithOrderBy(sortCol, sortDir))

	query, args := database.BuildListQuery(database.NewListQueryOptions("reservations", queryOpts...))

	var rowsOut []model.Reservation
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Reservation])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	res := make([]*model.Reservation, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Update updates status and/or notes of a reservation and marks it dirty.
func (r *ReservationRepo) Update(ctx context.Context, id string, req model.UpdateReservationRequest) (*model.Reservation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	setParts := make([]string, 0, 3)
	args := make([]any, 0, 5)
	nextIdx := func() int { return len(args) + 1 }

	if req.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", nextIdx()))
		args = append(args, *req.Status)
	}
	if req.Notes != nil {
		setParts = append(setParts, fmt.Sprintf("notes = $%d", nextIdx()))
		args = append(args, *req.Notes)
	}
	if len(setParts) == 0 {
		return r.GetByID(ctx, id)
	}
	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", nextIdx()))
	args = append(args, r.timeProvider.Now().UTC())
	setParts = append(setParts, "dirty = TRUE")

	return r.updateRow(ctx, id, strings.Join(setParts, ", "), args)
}

// ExtendDates moves the end date forward with the re-priced totals. The
// longer window is re-checked for overlap against other booked or active
// reservations for the same car, in the same transaction as the update, so
// extending cannot double-book a window another booking already holds.
func (r *ReservationRepo) ExtendDates(
	ctx context.Context,
	id string,
	newEndDate time.Time,
	totalCents int64,
	commissionPercent float64,
	commissionCents int64,
) (*model.Reservation, error) {
	var out model.Reservation
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		var carID string
		var startDate time.Time
		if err := tx.QueryRow(ctx,
			`SELECT car_id, start_date FROM reservations WHERE id = $1 FOR UPDATE`, id,
		).Scan(&carID, &startDate); err != nil {
			return err
		}

		var overlaps int
		if err := tx.QueryRow(ctx, reservationOverlapExcludingQuery,
			carID, startDate, newEndDate.UTC(), id,
		).Scan(&overlaps); err != nil {
			return err
		}
		if overlaps > 0 {
			return ErrCarUnavailable
		}

		rows, err := tx.Query(ctx, `
			UPDATE reservations SET
				end_date = $2, total_cents = $3, commission_percent = $4,
				commission_cents = $5, updated_at = $6, dirty = TRUE
			WHERE id = $1
			RETURNING `+reservationColumnList,
			id,
			newEndDate.UTC(),
			totalCents,
			commissionPercent,
			commissionCents,
			r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Reservation])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		if errors.Is(err, ErrCarUnavailable) {
			return nil, ErrCarUnavailable
		}
		return nil, fmt.Errorf("failed to extend reservation: %w", err)
	}
	return &out, nil
}

// Delete deletes a reservation by ID.
func (r *ReservationRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
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
		return false, fmt.Errorf("failed to delete reservation: %w", err)
	}
	return rows > 0, nil
}

// MonthlyBillingRow is one month of reservation revenue and commission.
type MonthlyBillingRow struct {
	Month            time.Time `db:"month"`
	ReservationCount int64     `db:"reservation_count"`
	RevenueCents     int64     `db:"revenue_cents"`
	CommissionCents  int64     `db:"commission_cents"`
}

// MonthlyBilling aggregates non-cancelled reservations by the month their
// rental starts, over [from, to).
func (r *ReservationRepo) MonthlyBilling(ctx context.Context, from, to time.Time) ([]MonthlyBillingRow, error) {
	var rowsOut []MonthlyBillingRow
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, reservationMonthlyBillingQuery, from.UTC(), to.UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[MonthlyBillingRow])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly billing: %w", err)
	}
	return rowsOut, nil
}

func (r *ReservationRepo) updateRow(ctx context.Context, id, setClause string, args []any) (*model.Reservation, error) {
	var out model.Reservation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		args := append(args, id)
		query := "UPDATE reservations SET " + setClause +
			" WHERE id = $" + strconv.Itoa(len(args)) +
			" RETURNING " + reservationColumnList
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Reservation])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &out, nil
}

const (
	reservationColumnList = `id, customer_id, car_id, start_date, end_date, daily_rate_cents,
		total_cents, commission_percent, commission_cents, status, notes, dirty, created_at, updated_at`

	reservationGetByIDQuery = `
		SELECT ` + reservationColumnList + `
		FROM reservations
		WHERE id = $1`

	// Half-open comparison on both ends keeps back-to-back rentals legal:
	// a reservation ending on a date does not collide with one starting then.
	reservationOverlapQuery = `
		SELECT COUNT(*)
		FROM reservations
		WHERE car_id = $1
		  AND status IN ('booked', 'active')
		  AND start_date < $3
		  AND end_date > $2`

	// Same window predicate as reservationOverlapQuery, minus the
	// reservation being extended.
	reservationOverlapExcludingQuery = reservationOverlapQuery + `
		  AND id != $4`

	reservationMonthlyBillingQuery = `
		SELECT date_trunc('month', start_date) AS month,
		       COUNT(*) AS reservation_count,
		       COALESCE(SUM(total_cents), 0)::bigint AS revenue_cents,
		       COALESCE(SUM(commission_cents), 0)::bigint AS commission_cents
		FROM reservations
		WHERE start_date >= $1 AND start_date < $2
		  AND status != 'cancelled'
		GROUP BY 1
		ORDER BY 1`
)

func reservationColumns() []string {
	return []string{
		"id",
		"customer_id",
		"car_id",
		"start_date",
		"end_date",
		"daily_rate_cents",
		"total_cents",
		"commission_percent",
		"commission_cents",
		"status",
		"notes",
		"dirty",
		"created_at",
		"updated_at",
	}
}
