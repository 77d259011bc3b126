package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dealerops/rentd/internal/domain/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run applies all SQL migrations embedded in this package. It is safe to call
// multiple times.
//
// On a fresh database the migrations run directly. When migrations have been
// applied before, the pending batch runs inside WithTableBackup over every
// data table that exists, so a failed upgrade cannot lose rows: the originals
// are restored from their _backup copies and the error is returned.
func Run(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	files, err := migrationFiles()
	if err != nil {
		return err
	}

	pending, err := pendingMigrations(ctx, db, files)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	var appliedBefore int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&appliedBefore); err != nil {
		return fmt.Errorf("count applied migrations: %w", err)
	}

	apply := func(ctx context.Context) error {
		for _, info := range pending {
			if applyErr := applyMigration(ctx, db, info); applyErr != nil {
				return applyErr
			}
		}
		return nil
	}

	// Fresh install: nothing to protect yet.
	if appliedBefore == 0 {
		return apply(ctx)
	}

	tables, err := ExistingTables(ctx, db, guardedTables())
	if err != nil {
		return err
	}
	return WithTableBackup(ctx, db, tables, apply)
}

// guardedTables lists the tables snapshotted around schema upgrades.
func guardedTables() []string {
	return append(model.SyncedTables(), "lead_rules", "scheduled_tasks")
}

// migrationInfo holds information about a migration for processing.
type migrationInfo struct {
	versionStr string
	file       string
}

func migrationFiles() ([]migrationInfo, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]migrationInfo, 0, len(names))
	for _, f := range names {
		files = append(files, migrationInfo{
			versionStr: strings.TrimSuffix(f, ".sql"),
			file:       f,
		})
	}
	return files, nil
}

func pendingMigrations(ctx context.Context, db *sql.DB, files []migrationInfo) ([]migrationInfo, error) {
	var pending []migrationInfo
	for _, info := range files {
		exists, err := migrationExists(ctx, db, info)
		if err != nil {
			return nil, err
		}
		if !exists {
			pending = append(pending, info)
		}
	}
	return pending, nil
}

func migrationExists(ctx context.Context, db *sql.DB, info migrationInfo) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`
	if err := db.QueryRowContext(ctx, query, info.versionStr).Scan(&exists); err != nil {
		return false, fmt.Errorf("check migration %s: %w", info.file, err)
	}
	return exists, nil
}

func insertMigration(ctx context.Context, tx *sql.Tx, info migrationInfo) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, info.versionStr); err != nil {
		return fmt.Errorf("record migration %s: %w", info.file, err)
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, info migrationInfo) error {
	sqlBytes, err := migrationsFS.ReadFile("migrations/" + info.file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", info.file, err)
	}

	logger := slog.Default().With("component", "migrations")
	logger.InfoContext(ctx, "applying migration", "version", info.versionStr)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			logger.ErrorContext(
				ctx,
				"failed to rollback transaction",
				"err",
				rollbackErr,
				"migration_file",
				info.file,
			)
		}
	}()

	if _, execErr := tx.ExecContext(ctx, string(sqlBytes)); execErr != nil {
		return fmt.Errorf("exec migration %s: %w", info.file, execErr)
	}
	if insertErr := insertMigration(ctx, tx, info); insertErr != nil {
		return insertErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit migration %s: %w", info.file, commitErr)
	}

	return nil
}
