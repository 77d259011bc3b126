package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealerops/rentd/internal/data/pgxutil"
	"github.com/dealerops/rentd/internal/domain/model"
)

// LeadRuleRepo provides database operations for lead routing rules.
//
// Rules are not part of the cloud sync set, so they carry no dirty column.
type LeadRuleRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewLeadRuleRepo creates a new LeadRuleRepo with real time provider.
func NewLeadRuleRepo(db *sql.DB) *LeadRuleRepo {
	return &LeadRuleRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewLeadRuleRepoWithTimeProvider creates a new LeadRuleRepo with a custom time provider.
func NewLeadRuleRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *LeadRuleRepo {
	return &LeadRuleRepo{DB: db, timeProvider: tp}
}

// Create inserts a new lead rule.
func (r *LeadRuleRepo) Create(ctx context.Context, req *model.CreateLeadRuleRequest) (*model.LeadRule, error) {
	if req == nil {
		return nil, errors.New("create lead rule request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	now := r.timeProvider.Now().UTC()
	var out model.LeadRule
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO lead_rules (
				id, name, expression, assign_to, webhook_url, priority, enabled, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $8
			) RETURNING `+leadRuleColumnList,
			uuid.NewString(),
			strings.TrimSpace(req.Name),
			strings.TrimSpace(req.Expression),
			strings.TrimSpace(req.AssignTo),
			req.WebhookURL,
			req.Priority,
			enabled,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.LeadRule])
		return err
	}); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrLeadRuleExists
		}
		return nil, fmt.Errorf("failed to create lead rule: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a lead rule by ID.
func (r *LeadRuleRepo) GetByID(ctx context.Context, id string) (*model.LeadRule, error) {
	var out model.LeadRule
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, leadRuleGetByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.LeadRule])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadRuleNotFound
		}
		return nil, fmt.Errorf("failed to get lead rule by ID: %w", err)
	}
	return &out, nil
}

// ListEnabled retrieves enabled rules ordered by ascending priority. Routing
// evaluates them in this order and stops at the first match.
func (r *LeadRuleRepo) ListEnabled(ctx context.Context) ([]*model.LeadRule, error) {
	return r.list(ctx, leadRuleListEnabledQuery)
}

// ListAll retrieves all rules ordered by ascending priority.
func (r *LeadRuleRepo) ListAll(ctx context.Context) ([]*model.LeadRule, error) {
	return r.list(ctx, leadRuleListAllQuery)
}

// SetEnabled toggles a rule.
func (r *LeadRuleRepo) SetEnabled(ctx context.Context, id string, enabled bool) (*model.LeadRule, error) {
	var out model.LeadRule
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE lead_rules SET enabled = $1, updated_at = $2
			WHERE id = $3
			RETURNING `+leadRuleColumnList,
			enabled, r.timeProvider.Now().UTC(), id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.LeadRule])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadRuleNotFound
		}
		return nil, err
	}
	return &out, nil
}

// Delete deletes a lead rule by ID.
func (r *LeadRuleRepo) Delete(ctx context.Context, id string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM lead_rules WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete lead rule: %w", err)
	}
	return rows > 0, nil
}

func (r *LeadRuleRepo) list(ctx context.Context, query string) ([]*model.LeadRule, error) {
	var rowsOut []model.LeadRule
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.LeadRule])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list lead rules: %w", err)
	}

	res := make([]*model.LeadRule, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

const (
	leadRuleColumnList = `id, name, expression, assign_to, webhook_url, priority, enabled, created_at, updated_at`

	leadRuleGetByIDQuery = `
		SELECT ` + leadRuleColumnList + `
		FROM lead_rules
		WHERE id = $1`

	leadRuleListEnabledQuery = `
		SELECT ` + leadRuleColumnList + `
		FROM lead_rules
		WHERE enabled
		ORDER BY priority ASC, created_at ASC`

	leadRuleListAllQuery = `
		SELECT ` + leadRuleColumnList + `
		FROM lead_rules
		ORDER BY priority ASC, created_at ASC`
)
