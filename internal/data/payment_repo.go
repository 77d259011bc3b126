package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealerops/rentd/internal/data/database"
	"github.com/dealerops/rentd/internal/data/pgxutil"
	"github.com/dealerops/rentd/internal/domain/model"
)

// PaymentRepo provides database operations for payments.
type PaymentRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewPaymentRepo creates a new PaymentRepo with real time provider.
func NewPaymentRepo(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewPaymentRepoWithTimeProvider creates a new PaymentRepo with a custom time provider.
func NewPaymentRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *PaymentRepo {
	return &PaymentRepo{DB: db, timeProvider: tp}
}

// Create records a payment against a reservation. CustomerID is denormalized
// from the reservation inside the same transaction.
func (r *PaymentRepo) Create(ctx context.Context, req *model.CreatePaymentRequest) (*model.Payment, error) {
	if req == nil {
		return nil, errors.New("create payment request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	paidAt := req.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}

	var out model.Payment
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		var customerID string
		if err := tx.QueryRow(ctx,
			`SELECT customer_id FROM reservations WHERE id = $1`,
			strings.TrimSpace(req.ReservationID),
		).Scan(&customerID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrReservationNotFound
			}
			return err
		}

		rows, err := tx.Query(ctx, `
			INSERT INTO payments (
				id, reservation_id, customer_id, amount_cents, method, paid_at, note,
				dirty, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7,
				TRUE, $8, $8
			) RETURNING `+paymentColumnList,
			uuid.NewString(),
			strings.TrimSpace(req.ReservationID),
			customerID,
			req.AmountCents,
			req.Method,
			paidAt.UTC(),
			req.Note,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Payment])
		return err
	})
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return nil, ErrReservationNotFound
		}
		if isForeignKeyViolation(err) {
			return nil, ErrForeignKey
		}
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	var out model.Payment
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, paymentGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Payment])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by ID: %w", err)
	}
	return &out, nil
}

// List retrieves payments with optional filters and pagination.
func (r *PaymentRepo) List(ctx context.Context, opts model.PaymentsListOptions) ([]*model.Payment, error) {
	limit, offset := normalizePage(opts.Limit, opts.Offset)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(paymentColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
		database.WithOrderBy("paid_at", sortDirDesc),
	}
	if opts.ReservationID != nil && strings.TrimSpace(*opts.ReservationID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("reservation_id", database.Equal, strings.TrimSpace(*opts.ReservationID)),
		))
	}
	if opts.CustomerID != nil && strings.TrimSpace(*opts.CustomerID) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("customer_id", database.Equal, strings.TrimSpace(*opts.CustomerID)),
		))
	}
	if opts.From != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("paid_at", database.GreaterThanOrEqual, opts.From.UTC()),
		))
	}
	if opts.To != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("paid_at", database.LessThanOrEqual, opts.To.UTC()),
		))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("payments", queryOpts...))

	var rowsOut []model.Payment
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Payment])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	res := make([]*model.Payment, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Delete deletes a payment by ID.
func (r *PaymentRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete payment: %w", err)
	}
	return rows > 0, nil
}

// MonthlyRevenueRow is one month of aggregated payment volume.
type MonthlyRevenueRow struct {
	Month        time.Time `db:"month"`
	PaymentCount int64     `db:"payment_count"`
	TotalCents   int64     `db:"total_cents"`
}

// MonthlyRevenue aggregates payments by calendar month over [from, to).
func (r *PaymentRepo) MonthlyRevenue(ctx context.Context, from, to time.Time) ([]MonthlyRevenueRow, error) {
	var rowsOut []MonthlyRevenueRow
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, paymentMonthlyRevenueQuery, from.UTC(), to.UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[MonthlyRevenueRow])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly revenue: %w", err)
	}
	return rowsOut, nil
}

// SumForReservation returns the total amount paid against a reservation.
func (r *PaymentRepo) SumForReservation(ctx context.Context, reservationID string) (int64, error) {
	var total int64
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE reservation_id = $1`,
			reservationID,
		).Scan(&total)
	}); err != nil {
		return 0, fmt.Errorf("failed to sum payments for reservation: %w", err)
	}
	return total, nil
}

const (
	paymentColumnList = `id, reservation_id, customer_id, amount_cents, method, paid_at, note,
		dirty, created_at, updated_at`

	paymentGetByIDQuery = `
		SELECT ` + paymentColumnList + `
		FROM payments
		WHERE id = $1`

	paymentMonthlyRevenueQuery = `
		SELECT date_trunc('month', paid_at) AS month,
		       COUNT(*) AS payment_count,
		       COALESCE(SUM(amount_cents), 0)::bigint AS total_cents
		FROM payments
		WHERE paid_at >= $1 AND paid_at < $2
		GROUP BY 1
		ORDER BY 1`
)

func paymentColumns() []string {
	return []string{
		"id",
		"reservation_id",
		"customer_id",
		"amount_cents",
		"method",
		"paid_at",
		"note",
		"dirty",
		"created_at",
		"updated_at",
	}
}
