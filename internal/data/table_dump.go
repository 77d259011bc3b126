package data

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dealerops/rentd/internal/data/pgxutil"
)

// TableDumper exports and restores whole tables as column maps. It backs the
// JSON backup/restore feature and stays schema-agnostic so new columns flow
// through without code changes.
type TableDumper struct {
	DB *sql.DB
}

// NewTableDumper creates a TableDumper.
func NewTableDumper(db *sql.DB) *TableDumper {
	return &TableDumper{DB: db}
}

// DumpTable reads every row of a table in insertion order.
func (d *TableDumper) DumpTable(ctx context.Context, table string) ([]map[string]any, error) {
	var rowsOut []map[string]any
	if err := pgxutil.WithPgxConn(ctx, d.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT * FROM `+quoteIdent(table)+` ORDER BY created_at ASC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToMap)
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to dump table %s: %w", table, err)
	}
	return rowsOut, nil
}

// ReplaceTableRows deletes all rows of a table and inserts the given ones in
// a single transaction. Restored rows are marked dirty so the next sync run
// reconciles the cloud copy with the restored state.
func (d *TableDumper) ReplaceTableRows(ctx context.Context, table string, rows []map[string]any) error {
	err := pgxutil.WithPgxTx(ctx, d.DB, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM `+quoteIdent(table)); err != nil {
			return err
		}
		for _, row := range rows {
			stmt, args := buildInsert(table, row)
			if _, err := tx.Exec(ctx, stmt, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to restore table %s: %w", table, err)
	}
	return nil
}

// ReplaceAllTables swaps the contents of several related tables in one
// transaction. Deletes run in reverse order so child rows go before their
// parents; inserts run in the given order so foreign keys resolve.
func (d *TableDumper) ReplaceAllTables(ctx context.Context, tables []string, data map[string][]map[string]any) error {
	return pgxutil.WithPgxTx(ctx, d.DB, func(tx pgx.Tx) error {
		for i := len(tables) - 1; i >= 0; i-- {
			if _, err := tx.Exec(ctx, `DELETE FROM `+quoteIdent(tables[i])); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", tables[i], err)
			}
		}
		for _, table := range tables {
			for _, row := range data[table] {
				stmt, args := buildInsert(table, row)
				if _, err := tx.Exec(ctx, stmt, args...); err != nil {
					return fmt.Errorf("failed to restore table %s: %w", table, err)
				}
			}
		}
		return nil
	})
}

// buildInsert renders a single-row INSERT from a column map. Columns are
// sorted for deterministic statements; the dirty flag is forced on.
func buildInsert(table string, row map[string]any) (string, []any) {
	cols := make([]string, 0, len(row))
	for col := range row {
		if col == "dirty" {
			continue
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	quoted := make([]string, 0, len(cols)+1)
	placeholders := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		quoted = append(quoted, quoteIdent(col))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, row[col])
	}
	quoted = append(quoted, quoteIdent("dirty"))
	placeholders = append(placeholders, "TRUE")

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
	return stmt, args
}
