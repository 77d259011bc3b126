package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealerops/rentd/config"
	"github.com/dealerops/rentd/internal/bootstrap"
	"github.com/dealerops/rentd/internal/catalog"
	"github.com/dealerops/rentd/internal/data"
	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultCommandTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrate,
		},
		"backup-export": {
			name:        "backup-export",
			description: "Export the business tables to a JSON backup file",
			run:         runBackupExport,
		},
		"backup-restore": {
			name:        "backup-restore",
			description: "Restore the business tables from a JSON backup file",
			run:         runBackupRestore,
		},
		"catalog-generate": {
			name:        "catalog-generate",
			description: "Generate the public car catalog from a bilingual source file",
			run:         runCatalogGenerate,
		},
		"sync-run": {
			name:        "sync-run",
			description: "Run one cloud sync pass and wait for it to finish",
			run:         runSyncOnce,
		},
	}
}

func printUsage() {
	fmt.Fprintf(os.Stdout, "Usage: rentd-admin <command> [flags]\n\n")
	fmt.Fprintf(os.Stdout, "Available commands:\n")
	for _, c := range commands() {
		fmt.Fprintf(os.Stdout, "  %-18s %s\n", c.name, c.description)
	}
}

// commandScope opens a signal-aware, timeout-bounded context for a command.
func commandScope(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runMigrate(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", defaultCommandTimeout, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := commandScope(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	cmdCtx.Logger.Info("running database migrations")

	if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return fmt.Errorf("run migrations: %w", migrateErr)
	}

	cmdCtx.Logger.Info("migrations completed successfully")
	return nil
}

func runBackupExport(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("backup-export", flag.ContinueOnError)
	out := fs.String("out", "", "output file (default: stdout)")
	timeout := fs.Duration("timeout", defaultCommandTimeout, "export timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := commandScope(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	svc := service.NewBackupService(service.BackupServiceOptions{
		DB:     db,
		Dumper: data.NewTableDumper(db),
		Logger: cmdCtx.Logger,
	})

	file, err := svc.Export(ctx)
	if err != nil {
		return fmt.Errorf("export backup: %w", err)
	}

	dest := os.Stdout
	if *out != "" {
		f, createErr := os.Create(*out)
		if createErr != nil {
			return fmt.Errorf("create output file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				cmdCtx.Logger.Warn("close output file failed", "error", closeErr)
			}
		}()
		dest = f
	}

	enc := json.NewEncoder(dest)
	enc.SetIndent("", "  ")
	if encodeErr := enc.Encode(file); encodeErr != nil {
		return fmt.Errorf("write backup: %w", encodeErr)
	}

	cmdCtx.Logger.Info("backup exported", "rows", file.RowCount(), "out", *out)
	return nil
}

func runBackupRestore(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("backup-restore", flag.ContinueOnError)
	in := fs.String("in", "", "backup file to restore (required)")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	timeout := fs.Duration("timeout", defaultCommandTimeout, "restore timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("backup-restore: -in is required")
	}
	if !*yes {
		return fmt.Errorf("backup-restore replaces every business table; re-run with -yes to confirm")
	}

	raw, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("read backup file: %w", err)
	}
	var file model.BackupFile
	if err = json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse backup file: %w", err)
	}

	ctx, cancel := commandScope(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	svc := service.NewBackupService(service.BackupServiceOptions{
		DB:     db,
		Dumper: data.NewTableDumper(db),
		Logger: cmdCtx.Logger,
	})

	if restoreErr := svc.Restore(ctx, &file); restoreErr != nil {
		return fmt.Errorf("restore backup: %w", restoreErr)
	}

	cmdCtx.Logger.Info("backup restored", "rows", file.RowCount(), "exported_at", file.ExportedAt)
	return nil
}

func runCatalogGenerate(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("catalog-generate", flag.ContinueOnError)
	in := fs.String("in", "", "bilingual catalog source file (required)")
	out := fs.String("out", "", "output directory (default: CATALOG_DIR)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("catalog-generate: -in is required")
	}
	dir := *out
	if dir == "" {
		dir = cmdCtx.Config.Catalog.Dir
	}

	raw, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("read catalog source: %w", err)
	}
	var input []catalog.InputBrand
	if err = json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("parse catalog source: %w", err)
	}

	output := catalog.Generate(input, time.Now().UTC())
	if err = catalog.WriteDir(dir, output); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	cmdCtx.Logger.Info("catalog generated",
		"brands", len(output.Brands.Brands),
		"dir", dir)
	return nil
}

func runSyncOnce(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("sync-run", flag.ContinueOnError)
	timeout := fs.Duration("timeout", defaultCommandTimeout, "sync run timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := commandScope(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, redisClient, err := connectInfra(cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()
	if redisClient != nil {
		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
			}
		}()
	}

	services := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cmdCtx.Config,
		DB:          db,
		RedisClient: redisClient,
		Logger:      cmdCtx.Logger,
	})
	if services.Sync == nil {
		return fmt.Errorf("cloud sync is not configured (set SYNC_ENDPOINT)")
	}

	cmdCtx.Logger.Info("starting sync run")
	if runErr := services.Sync.RunNow(ctx); runErr != nil {
		return fmt.Errorf("sync run: %w", runErr)
	}

	progress := services.Sync.Status()
	cmdCtx.Logger.Info("sync run completed",
		"processed", progress.Processed,
		"total", progress.Total)
	return nil
}

// connectInfra connects Postgres and, best effort, Redis. A Redis failure is
// tolerated; the sync run lock then only covers this process.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectInfra(cmdCtx *commandContext) (*sql.DB, redis.UniversalClient, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	redisClient, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		DBConfig:    cmdCtx.Config.Postgres,
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		cmdCtx.Logger.Warn("redis unavailable, continuing without it", "error", err)
		redisClient = nil
	}

	return db, redisClient, nil
}
