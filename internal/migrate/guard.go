package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// WithTableBackup snapshots the given tables, runs fn, and either discards
// the snapshots (success) or restores the tables from them (failure).
//
// Each snapshot is a plain copy: CREATE TABLE <name>_backup AS SELECT *.
// On failure the original table is dropped and the backup renamed into its
// place, so the data survives even when fn left the table half-altered.
// Constraints and indexes are not carried by the copy; restoring from a
// backup leaves the table in a degraded state that the next successful
// migration run repairs.
func WithTableBackup(ctx context.Context, db *sql.DB, tables []string, fn func(context.Context) error) error {
	logger := slog.Default().With("component", "migrations")

	backed := make([]string, 0, len(tables))
	for _, table := range tables {
		quoted := quoteIdent(table)
		backup := quoteIdent(table + "_backup")
		if _, err := db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, backup)); err != nil {
			return fmt.Errorf("drop stale backup of %s: %w", table, err)
		}
		if _, err := db.ExecContext(ctx,
			fmt.Sprintf(`CREATE TABLE %s AS SELECT * FROM %s`, backup, quoted),
		); err != nil {
			return fmt.Errorf("back up table %s: %w", table, err)
		}
		backed = append(backed, table)

		var rowCount int64
		if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, backup)).Scan(&rowCount); err == nil {
			logger.InfoContext(ctx, "backed up table", "table", table, "rows", rowCount)
		}
	}

	if err := fn(ctx); err != nil {
		logger.ErrorContext(ctx, "guarded operation failed, restoring tables from backup", "err", err)
		return errors.Join(err, restoreFromBackups(ctx, db, backed))
	}

	for _, table := range backed {
		if _, err := db.ExecContext(ctx,
			fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(table+"_backup")),
		); err != nil {
			return fmt.Errorf("drop backup of %s: %w", table, err)
		}
	}
	return nil
}

// restoreFromBackups walks the backed-up tables in reverse. Tables are backed
// up parents first, and Postgres refuses to drop a parent while a child still
// holds a foreign key to it; replacing children first leaves only the
// constraint-free backup copies referencing nothing, so the parents drop clean.
func restoreFromBackups(ctx context.Context, db *sql.DB, tables []string) error {
	var errs []error
	for i := len(tables) - 1; i >= 0; i-- {
		table := tables[i]
		if _, err := db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(table))); err != nil {
			errs = append(errs, fmt.Errorf("drop broken table %s: %w", table, err))
			continue
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf(
			`ALTER TABLE %s RENAME TO %s`,
			quoteIdent(table+"_backup"), quoteIdent(table),
		)); err != nil {
			errs = append(errs, fmt.Errorf("restore table %s from backup: %w", table, err))
		}
	}
	return errors.Join(errs...)
}

// ExistingTables filters the candidate names down to tables present in the
// connected database.
func ExistingTables(ctx context.Context, db *sql.DB, candidates []string) ([]string, error) {
	out := make([]string, 0, len(candidates))
	for _, table := range candidates {
		var reg sql.NullString
		if err := db.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, table).Scan(&reg); err != nil {
			return nil, fmt.Errorf("check table %s: %w", table, err)
		}
		if reg.Valid {
			out = append(out, table)
		}
	}
	return out, nil
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
