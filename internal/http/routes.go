package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dealerops/rentd/internal/core"
	domainauth "github.com/dealerops/rentd/internal/domain/auth"
	"github.com/dealerops/rentd/internal/observability/statsd"
	"github.com/dealerops/rentd/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Cars         *service.CarService
	Customers    *service.CustomerService
	Suppliers    *service.SupplierService
	Reservations *service.ReservationService
	Payments     *service.PaymentService
	Leads        *service.LeadService
	Billing      *service.BillingService
	Sync         *service.SyncService
	Backup       *service.BackupService

	// Auth is optional; when nil the admin API is left open (tests, dev).
	Auth         AuthServiceInterface
	CookieDomain string

	// Catalog serving.
	CatalogDir      string
	CatalogCache    core.CacheRepository
	CatalogCacheTTL time.Duration

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	carHandlers := &CarHandlers{Svc: services.Cars}
	customerHandlers := &CustomerHandlers{Svc: services.Customers}
	supplierHandlers := &SupplierHandlers{Svc: services.Suppliers}
	reservationHandlers := &ReservationHandlers{Svc: services.Reservations, Payments: services.Payments}
	paymentHandlers := &PaymentHandlers{Svc: services.Payments}
	leadHandlers := &LeadHandlers{Svc: services.Leads}
	billingHandlers := &BillingHandlers{Svc: services.Billing}
	syncHandlers := &SyncHandlers{Svc: services.Sync}
	backupHandlers := &BackupHandlers{Svc: services.Backup}
	catalogHandlers := &CatalogHandlers{
		Dir:      services.CatalogDir,
		Cache:    services.CatalogCache,
		CacheTTL: services.CatalogCacheTTL,
		Logger:   logger,
	}

	agentOnly := roleWrap(services.Auth, domainauth.RoleAgent)
	adminOnly := roleWrap(services.Auth, domainauth.RoleAdmin)

	// Public surface.
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.HandleFunc("GET /api/public/cars", carHandlers.PublicList)
	mux.HandleFunc("POST /api/public/leads", leadHandlers.Submit)
	mux.HandleFunc("GET /api/public/catalog/{path...}", catalogHandlers.Get)

	// Admin CRUD.
	registerCRUD(mux, crudRoutes{
		Base: "/api/cars", Middleware: agentOnly,
		Create: carHandlers.Create, List: carHandlers.List, GetByID: carHandlers.GetByID,
		Update: carHandlers.Update, Delete: carHandlers.Delete,
	})
	registerCRUD(mux, crudRoutes{
		Base: "/api/customers", Middleware: agentOnly,
		Create: customerHandlers.Create, List: customerHandlers.List, GetByID: customerHandlers.GetByID,
		Update: customerHandlers.Update, Delete: customerHandlers.Delete,
	})
	registerCRUD(mux, crudRoutes{
		Base: "/api/suppliers", Middleware: agentOnly,
		Create: supplierHandlers.Create, List: supplierHandlers.List, GetByID: supplierHandlers.GetByID,
		Update: supplierHandlers.Update, Delete: supplierHandlers.Delete,
	})
	registerCRUD(mux, crudRoutes{
		Base: "/api/leads", Middleware: agentOnly,
		Create: leadHandlers.Submit, List: leadHandlers.List, GetByID: leadHandlers.GetByID,
		Update: leadHandlers.Update, Delete: leadHandlers.Delete,
	})
	registerCRUD(mux, crudRoutes{
		Base: "/api/lead-rules", Middleware: adminOnly,
		Create: leadHandlers.CreateRule, List: leadHandlers.ListRules, GetByID: leadHandlers.GetRule,
		Update: leadHandlers.SetRuleEnabled, Delete: leadHandlers.DeleteRule,
	})

	// Reservations get extra verbs beyond CRUD. The quote route must be
	// registered explicitly so it isn't swallowed by the {id} pattern.
	mux.Handle("GET /api/reservations/quote", agentOnly(http.HandlerFunc(reservationHandlers.Quote)))
	registerCRUD(mux, crudRoutes{
		Base: "/api/reservations", Middleware: agentOnly,
		Create: reservationHandlers.Create, List: reservationHandlers.List, GetByID: reservationHandlers.GetByID,
		Update: reservationHandlers.Update, Delete: reservationHandlers.Delete,
	})
	mux.Handle("POST /api/reservations/{id}/extend", agentOnly(http.HandlerFunc(reservationHandlers.Extend)))
	mux.Handle("GET /api/reservations/{id}/balance", agentOnly(http.HandlerFunc(reservationHandlers.Balance)))

	// Payments: no update verb, corrections are delete + re-create.
	mux.Handle("POST /api/payments", agentOnly(http.HandlerFunc(paymentHandlers.Create)))
	mux.Handle("GET /api/payments", agentOnly(http.HandlerFunc(paymentHandlers.List)))
	mux.Handle("GET /api/payments/{id}", agentOnly(http.HandlerFunc(paymentHandlers.GetByID)))
	mux.Handle("DELETE /api/payments/{id}", agentOnly(http.HandlerFunc(paymentHandlers.Delete)))

	mux.Handle("GET /api/billing/revenue", agentOnly(http.HandlerFunc(billingHandlers.RevenueReport)))

	mux.Handle("POST /api/sync/run", agentOnly(http.HandlerFunc(syncHandlers.Run)))
	mux.Handle("GET /api/sync/status", agentOnly(http.HandlerFunc(syncHandlers.Status)))
	mux.Handle("GET /api/sync/wait", agentOnly(http.HandlerFunc(syncHandlers.Wait)))

	mux.Handle("GET /api/backup/export", adminOnly(http.HandlerFunc(backupHandlers.Export)))
	mux.Handle("POST /api/backup/restore", adminOnly(http.HandlerFunc(backupHandlers.Restore)))

	if services.Auth != nil {
		authHandlers := &AuthHandlers{Svc: services.Auth, CookieDomain: services.CookieDomain, Logger: logger}
		mux.HandleFunc("GET /auth/login", authHandlers.Login)
		mux.HandleFunc("GET /auth/callback", authHandlers.Callback)
		mux.HandleFunc("POST /auth/logout", authHandlers.Logout)
		mux.HandleFunc("GET /auth/me", authHandlers.Me)
	}

	var handler http.Handler = mux
	handler = Logging(logger, services.Metrics)(handler)
	handler = Recover(logger)(handler)
	return handler
}

// roleWrap returns a no-op wrapper when auth is nil, otherwise RequireRole.
func roleWrap(auth AuthServiceInterface, role domainauth.Role) func(http.Handler) http.Handler {
	if auth == nil {
		return func(h http.Handler) http.Handler { return h }
	}
	return RequireRole(auth, role)
}

type crudRoutes struct {
	Base       string
	Create     http.HandlerFunc
	List       http.HandlerFunc
	GetByID    http.HandlerFunc
	Update     http.HandlerFunc
	Delete     http.HandlerFunc
	Middleware func(http.Handler) http.Handler
}

func registerCRUD(mux *http.ServeMux, cfg crudRoutes) {
	if cfg.Base == "" {
		panic("registerCRUD: Base must not be empty") //nolint:forbidigo // Fail fast during server setup.
	}
	if cfg.Create == nil ||
		cfg.List == nil ||
		cfg.GetByID == nil ||
		cfg.Update == nil ||
		cfg.Delete == nil {
		panic("registerCRUD: nil handler for base " + cfg.Base) //nolint:forbidigo // Fail fast during server setup.
	}

	wrap := func(h http.HandlerFunc) http.Handler {
		if cfg.Middleware != nil {
			return cfg.Middleware(h)
		}
		return h
	}
	mux.Handle("POST "+cfg.Base, wrap(cfg.Create))
	mux.Handle("GET "+cfg.Base, wrap(cfg.List))
	mux.Handle("GET "+cfg.Base+"/{id}", wrap(cfg.GetByID))
	mux.Handle("PUT "+cfg.Base+"/{id}", wrap(cfg.Update))
	mux.Handle("DELETE "+cfg.Base+"/{id}", wrap(cfg.Delete))
}
