package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dealerops/rentd/config"
	httpx "github.com/dealerops/rentd/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	services := httpx.RouterServices{
		Cars:            cfg.Services.Cars,
		Customers:       cfg.Services.Customers,
		Suppliers:       cfg.Services.Suppliers,
		Reservations:    cfg.Services.Reservations,
		Payments:        cfg.Services.Payments,
		Leads:           cfg.Services.Leads,
		Billing:         cfg.Services.Billing,
		Sync:            cfg.Services.Sync,
		Backup:          cfg.Services.Backup,
		CookieDomain:    appCfg.HTTP.CookieDomain,
		CatalogDir:      appCfg.Catalog.Dir,
		CatalogCacheTTL: appCfg.Catalog.CacheTTL,
		Logger:          logger,
		Metrics:         cfg.Services.Observability.Sink(),
	}
	// Interface fields: only assign non-nil concrete values so the router's
	// nil checks keep working.
	if cfg.Services.Auth != nil {
		services.Auth = cfg.Services.Auth
	}
	if cfg.Services.Cache != nil {
		services.CatalogCache = cfg.Services.Cache
	}

	router := httpx.NewRouter(services)
	return startServer(logger, router, appCfg.HTTP)
}

func startServer(logger *slog.Logger, handler http.Handler, cfg config.HTTPConfig) *http.Server {
	addr := cfg.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	if err := cfg.Server.Shutdown(cfg.Context); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
