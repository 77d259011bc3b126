package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dealerops/rentd/internal/data/pgxutil"
	"github.com/dealerops/rentd/internal/domain/model"
)

// DirtyRowSource reads and clears per-row dirty flags on the synced tables.
// It works generically across tables: rows come back as column maps so the
// sync engine can ship them without a per-entity codec.
type DirtyRowSource struct {
	DB *sql.DB
}

// NewDirtyRowSource creates a DirtyRowSource.
func NewDirtyRowSource(db *sql.DB) *DirtyRowSource {
	return &DirtyRowSource{DB: db}
}

// CountDirty returns the number of rows awaiting sync in a table.
func (s *DirtyRowSource) CountDirty(ctx context.Context, table string) (int, error) {
	var count int
	if err := pgxutil.WithPgxConn(ctx, s.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM `+quoteIdent(table)+` WHERE dirty`,
		).Scan(&count)
	}); err != nil {
		return 0, fmt.Errorf("failed to count dirty rows in %s: %w", table, err)
	}
	return count, nil
}

// ListDirty returns up to limit dirty rows from a table, oldest update first
// so long-stale rows are shipped before churning ones.
func (s *DirtyRowSource) ListDirty(ctx context.Context, table string, limit int) ([]model.SyncDocument, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var rowsOut []map[string]any
	if err := pgxutil.WithPgxConn(ctx, s.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT * FROM `+quoteIdent(table)+` WHERE dirty ORDER BY updated_at ASC LIMIT $1`,
			limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToMap)
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list dirty rows in %s: %w", table, err)
	}

	docs := make([]model.SyncDocument, 0, len(rowsOut))
	for _, row := range rowsOut {
		id, ok := row["id"].(string)
		if !ok {
			return nil, fmt.Errorf("dirty row in %s has no string id column", table)
		}
		// The dirty flag is local bookkeeping and never leaves the machine.
		delete(row, "dirty")
		docs = append(docs, model.SyncDocument{ID: id, Data: row})
	}
	return docs, nil
}

// ClearDirty resets the dirty flag on the given rows after a confirmed upload.
func (s *DirtyRowSource) ClearDirty(ctx context.Context, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := pgxutil.WithPgxConn(ctx, s.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx,
			`UPDATE `+quoteIdent(table)+` SET dirty = FALSE WHERE id = ANY($1)`,
			ids,
		)
		return err
	}); err != nil {
		return fmt.Errorf("failed to clear dirty flag in %s: %w", table, err)
	}
	return nil
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
