package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealerops/rentd/config"
	schedrunner "github.com/dealerops/rentd/internal/adapters/scheduler"
	"github.com/dealerops/rentd/internal/data"
	"github.com/dealerops/rentd/internal/observability/notify"
	"github.com/dealerops/rentd/internal/observability/notify/webhook"
	"github.com/dealerops/rentd/internal/observability/statsd"
	"github.com/dealerops/rentd/internal/service"
	"github.com/dealerops/rentd/internal/sync"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Cars          *service.CarService
	Customers     *service.CustomerService
	Suppliers     *service.SupplierService
	Reservations  *service.ReservationService
	Payments      *service.PaymentService
	Leads         *service.LeadService
	Billing       *service.BillingService
	Sync          *service.SyncService
	Backup        *service.BackupService
	Scheduler     *service.SchedulerService
	Auth          *service.AuthService
	Cache         *data.RedisCacheRepo
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink    *statsd.Client
	MetricsConfig  config.ObservabilityMetricsConfig
	Notifier       notify.Sink
	NotifierConfig config.ObservabilityNotificationsConfig
}

// Sink returns the metrics sink, or nil when metrics are disabled.
//
//nolint:ireturn // callers consume the statsd.Sink interface.
func (o ObservabilityContainer) Sink() statsd.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB           *sql.DB
	Redis        redis.UniversalClient
	CarRepo      *data.CarRepo
	CustomerRepo *data.CustomerRepo
	SupplierRepo *data.SupplierRepo
	Reservations *data.ReservationRepo
	PaymentRepo  *data.PaymentRepo
	LeadRepo     *data.LeadRepo
	LeadRuleRepo *data.LeadRuleRepo
	TaskRepo     *data.ScheduledTaskRepo
	CacheRepo    *data.RedisCacheRepo
	DirtySource  *data.DirtyRowSource
	TableDumper  *data.TableDumper
}

// buildObservability configures the metrics sink and the webhook notifier.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "rentd",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	var notifier notify.Sink
	if cfg.Notifications.IsEnabled() {
		client, err := webhook.NewClient(webhook.Config{
			URL:        cfg.Notifications.WebhookURL,
			Username:   cfg.Notifications.Username,
			Timeout:    cfg.Notifications.Timeout,
			RetryLimit: cfg.Notifications.RetryLimit,
		})
		if err != nil {
			obsLogger.Error("failed to initialise webhook notifier", "error", err)
		} else {
			notifier = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:    metricsSink,
		MetricsConfig:  cfg.Metrics,
		Notifier:       notifier,
		NotifierConfig: cfg.Notifications,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient) *serviceRepositories {
	repos := &serviceRepositories{
		DB:           db,
		Redis:        redisClient,
		CarRepo:      data.NewCarRepo(db),
		CustomerRepo: data.NewCustomerRepo(db),
		SupplierRepo: data.NewSupplierRepo(db),
		Reservations: data.NewReservationRepo(db),
		PaymentRepo:  data.NewPaymentRepo(db),
		LeadRepo:     data.NewLeadRepo(db),
		LeadRuleRepo: data.NewLeadRuleRepo(db),
		TaskRepo:     data.NewScheduledTaskRepo(db),
		DirtySource:  data.NewDirtyRowSource(db),
		TableDumper:  data.NewTableDumper(db),
	}
	if redisClient != nil {
		repos.CacheRepo = data.NewRedisCacheRepo(redisClient)
	}
	return repos
}

// buildSyncService wires the dirty-row sync engine when an endpoint is
// configured. Returns nil when sync is disabled, which turns the sync API
// endpoints into 503s.
func buildSyncService(
	repos *serviceRepositories,
	cfg config.SyncConfig,
	obs ObservabilityContainer,
	logger *slog.Logger,
) *service.SyncService {
	if !cfg.Enabled {
		logger.Info("cloud sync disabled")
		return nil
	}

	store, err := sync.NewHTTPDocumentStore(sync.HTTPDocumentStoreConfig{
		Endpoint: cfg.Endpoint,
		APIToken: cfg.APIToken,
	})
	if err != nil {
		logger.Error("failed to build sync document store, sync disabled", "error", err)
		return nil
	}

	engine, err := sync.NewEngine(sync.EngineOptions{
		Source:    repos.DirtySource,
		Store:     store,
		BatchSize: cfg.BatchSize,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to build sync engine, sync disabled", "error", err)
		return nil
	}

	opts := service.SyncServiceOptions{
		Engine:   engine,
		Notifier: obs.Notifier,
		Metrics:  obs.Sink(),
		Logger:   logger,
	}
	if repos.CacheRepo != nil {
		opts.Cache = repos.CacheRepo
	}
	return service.NewSyncService(opts)
}

// NewServices wires repositories, observability adapters and business services.
func NewServices(deps *ServiceDeps) ServiceContainer {
	if deps == nil {
		return ServiceContainer{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	observability := buildObservability(logger, appCfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient)

	carOpts := service.CarServiceOptions{
		Cars:     repos.CarRepo,
		CacheTTL: appCfg.Cache.ListingsTTL,
		Logger:   logger,
	}
	if repos.CacheRepo != nil {
		carOpts.Cache = repos.CacheRepo
	}
	carService := service.NewCarService(carOpts)

	customerService := service.NewCustomerService(service.CustomerServiceOptions{
		Customers: repos.CustomerRepo,
	})
	supplierService := service.NewSupplierService(service.SupplierServiceOptions{
		Suppliers: repos.SupplierRepo,
	})
	reservationService := service.NewReservationService(service.ReservationServiceOptions{
		Reservations: repos.Reservations,
		Cars:         repos.CarRepo,
		Logger:       logger,
	})
	paymentService := service.NewPaymentService(service.PaymentServiceOptions{
		Payments:     repos.PaymentRepo,
		Reservations: repos.Reservations,
	})
	leadService := service.NewLeadService(service.LeadServiceOptions{
		Leads:      repos.LeadRepo,
		Rules:      repos.LeadRuleRepo,
		Evaluator:  service.NewRuleEvaluator(),
		Notifier:   observability.Notifier,
		SinkForURL: webhookSinkFactory(appCfg.Observability.Notifications, logger),
		Logger:     logger,
	})
	billingService := service.NewBillingService(service.BillingServiceOptions{
		Reservations: repos.Reservations,
		Payments:     repos.PaymentRepo,
	})
	syncService := buildSyncService(repos, appCfg.Sync, observability, logger)
	backupService := service.NewBackupService(service.BackupServiceOptions{
		DB:     deps.DB,
		Dumper: repos.TableDumper,
		Logger: logger,
	})
	schedulerService := service.NewSchedulerService(service.SchedulerServiceOptions{
		Tasks:        repos.TaskRepo,
		Sync:         syncService,
		Reservations: reservationService,
		Cars:         carService,
		Config:       appCfg.Scheduler,
		SyncInterval: appCfg.Sync.Interval,
		SyncEnabled:  syncService != nil,
		Metrics:      observability.Sink(),
		Logger:       logger,
	})
	authService := BuildAuthService(AuthConfig{
		Auth:        appCfg.Auth,
		RedisClient: deps.RedisClient,
		Logger:      logger,
	})

	return ServiceContainer{
		Cars:          carService,
		Customers:     customerService,
		Suppliers:     supplierService,
		Reservations:  reservationService,
		Payments:      paymentService,
		Leads:         leadService,
		Billing:       billingService,
		Sync:          syncService,
		Backup:        backupService,
		Scheduler:     schedulerService,
		Auth:          authService,
		Cache:         repos.CacheRepo,
		Observability: observability,
	}
}

// webhookSinkFactory builds per-rule webhook sinks for lead routing rules
// that carry their own notification URL.
func webhookSinkFactory(cfg config.ObservabilityNotificationsConfig, logger *slog.Logger) func(string) notify.Sink {
	return func(webhookURL string) notify.Sink {
		client, err := webhook.NewClient(webhook.Config{
			URL:        webhookURL,
			Username:   cfg.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Warn("invalid rule webhook url", "error", err)
			return nil
		}
		return client
	}
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
const shutdownWaitTimeout = 15 * time.Second

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
	})
}

func launchBackground(deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	ctx := deps.ctx
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started",
		"service", descriptor.name, "mode", descriptor.mode)
	return done
}

func newSchedulerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeScheduler,
		name: "scheduler",
		start: func(ctx context.Context) error {
			interval := time.Second
			if deps.cfg.Config != nil {
				interval = deps.cfg.Config.Scheduler.Interval
			}
			runner, err := schedrunner.NewRunner(schedrunner.RunnerOptions{
				Scheduler: deps.cfg.Services.Scheduler,
				Interval:  interval,
				Logger:    deps.logger,
				Metrics:   deps.cfg.Services.Observability.Sink(),
			})
			if err != nil {
				return err
			}
			return runner.Run(ctx)
		},
	}
}

// newSyncerBackgroundService runs periodic sync passes directly, for
// deployments that want the syncer isolated from the scheduler node.
func newSyncerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeSyncer,
		name: "syncer",
		start: func(ctx context.Context) error {
			svc := deps.cfg.Services.Sync
			if svc == nil {
				return errors.New("syncer enabled but cloud sync is not configured")
			}
			syncCfg := config.SyncConfig{}
			if deps.cfg.Config != nil {
				syncCfg = deps.cfg.Config.Sync
			}

			ticker := time.NewTicker(syncCfg.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}

				runCtx, cancel := context.WithTimeout(ctx, syncCfg.RunTimeout)
				err := svc.RunNow(runCtx)
				cancel()
				if err != nil && !errors.Is(err, sync.ErrRunInProgress) {
					deps.logger.ErrorContext(ctx, "periodic sync run failed", "error", err)
				}
			}
		},
	}
}

func startBackgroundServices(deps *serviceStartupDeps) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	services := []backgroundService{
		newSchedulerBackgroundService(deps),
		newSyncerBackgroundService(deps),
	}

	handles := make([]backgroundServiceHandle, 0, len(services))
	for _, svc := range services {
		done := launchBackground(deps, svc)
		if done == nil {
			continue
		}
		handles = append(handles, backgroundServiceHandle{name: svc.name, done: done})
	}
	return handles
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, len(enabledServices)+1)

	deps := &serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	}
	result := ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps),
	}

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		httpConfig:  cfg.Config.HTTP,
		logger:      logger,
		backgrounds: result.Background,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	httpConfig  config.HTTPConfig
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.httpConfig.ShutdownTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
