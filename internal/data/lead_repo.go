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

// LeadRepo provides database operations for sales leads.
type LeadRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewLeadRepo creates a new LeadRepo with real time provider.
func NewLeadRepo(db *sql.DB) *LeadRepo {
	return &LeadRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewLeadRepoWithTimeProvider creates a new LeadRepo with a custom time provider.
func NewLeadRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *LeadRepo {
	return &LeadRepo{DB: db, timeProvider: tp}
}

// CreateLeadParams is a lead after routing: the service layer has already
// derived the source domain and resolved the assignee.
type CreateLeadParams struct {
	FullName     string
	Phone        string
	Email        *string
	Message      *string
	CarID        *string
	Referrer     *string
	SourceDomain *string
	Status       model.LeadStatus
	AssignedTo   *string
}

// Create inserts a new lead.
func (r *LeadRepo) Create(ctx context.Context, p CreateLeadParams) (*model.Lead, error) {
	now := r.timeProvider.Now().UTC()
	status := p.Status
	if status == "" {
		status = model.LeadStatusNew
	}

	var out model.Lead
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO leads (
				id, full_name, phone, email, message, car_id, referrer, source_domain,
				status, assigned_to, dirty, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8,
				$9, $10, TRUE, $11, $11
			) RETURNING `+leadColumnList,
			uuid.NewString(),
			strings.TrimSpace(p.FullName),
			strings.TrimSpace(p.Phone),
			p.Email,
			p.Message,
			p.CarID,
			p.Referrer,
			p.SourceDomain,
			status,
			p.AssignedTo,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Lead])
		return err
	}); err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrForeignKey
		}
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a lead by ID.
func (r *LeadRepo) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	var out model.Lead
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, leadGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Lead])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead by ID: %w", err)
	}
	return &out, nil
}

// List retrieves leads with optional filters, sorting and pagination.
func (r *LeadRepo) List(ctx context.Context, opts model.LeadsListOptions) ([]*model.Lead, error) {
	limit, offset := normalizePage(opts.Limit, opts.Offset)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(leadColumns()...),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}
	if opts.Status != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("status", database.Equal, *opts.Status),
		))
	}
	if opts.AssignedTo != nil && strings.TrimSpace(*opts.AssignedTo) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("assigned_to", database.Equal, strings.TrimSpace(*opts.AssignedTo)),
		))
	}
	if opts.SourceDomain != nil && strings.TrimSpace(*opts.SourceDomain) != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("source_domain", database.Equal, strings.TrimSpace(*opts.SourceDomain)),
		))
	}
	sortCol, sortDir := validateSort(opts.Sort, opts.Dir, map[string]string{
		"created_at": "created_at",
	})
	queryOpts = append(queryOpts, database.WithOrderBy(sortCol, sortDir))

	query, args := database.BuildListQuery(database.NewListQueryOptions("leads", queryOpts...))

	var rowsOut []model.Lead
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Lead])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	res := make([]*model.Lead, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Update updates status and/or assignee of a lead and marks it dirty.
func (r *LeadRepo) Update(ctx context.Context, id string, req model.UpdateLeadRequest) (*model.Lead, error) {
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
	if req.AssignedTo != nil {
		if strings.TrimSpace(*req.AssignedTo) == "" {
			setParts = append(setParts, "assigned_to = NULL")
		} else {
			setParts = append(setParts, fmt.Sprintf("assigned_to = $%d", nextIdx()))
			args = append(args, strings.TrimSpace(*req.AssignedTo))
		}
	}
	if len(setParts) == 0 {
		return r.GetByID(ctx, id)
	}
	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", nextIdx()))
	args = append(args, r.timeProvider.Now().UTC())
	setParts = append(setParts, "dirty = TRUE")

	var out model.Lead
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		args := append(args, id)
		query := "UPDATE leads SET " + strings.Join(setParts, ", ") +
			" WHERE id = $" + strconv.Itoa(len(args)) +
			" RETURNING " + leadColumnList
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Lead])
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return &out, nil
}

// Delete deletes a lead by ID.
func (r *LeadRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete lead: %w", err)
	}
	return rows > 0, nil
}

const (
	leadColumnList = `id, full_name, phone, email, message, car_id, referrer, source_domain,
		status, assigned_to, dirty, created_at, updated_at`

	leadGetByIDQuery = `
		SELECT ` + leadColumnList + `
		FROM leads
		WHERE id = $1`
)

func leadColumns() []string {
	return []string{
		"id",
		"full_name",
		"phone",
		"email",
		"message",
		"car_id",
		"referrer",
		"source_domain",
		"status",
		"assigned_to",
		"dirty",
		"created_at",
		"updated_at",
	}
}
