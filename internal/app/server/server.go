package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"backoffice/internal/domain/attendance"
	"backoffice/internal/domain/audit"
	"backoffice/internal/domain/auth"
	"backoffice/internal/domain/employee"
	"backoffice/internal/domain/ledger"
	"backoffice/internal/domain/payroll"
	"backoffice/internal/platform/cache"
	"backoffice/internal/platform/config"
	"backoffice/internal/platform/crypto"
	"backoffice/internal/platform/db"
	"backoffice/internal/platform/jobs"
	"backoffice/internal/platform/logger"
	"backoffice/internal/platform/metrics"
	"backoffice/internal/transport/http/api"
	attendancehandler "backoffice/internal/transport/http/handlers/attendance"
	audithandler "backoffice/internal/transport/http/handlers/audit"
	employeehandler "backoffice/internal/transport/http/handlers/employee"
	payrollhandler "backoffice/internal/transport/http/handlers/payroll"
	"backoffice/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Payroll *payroll.Service
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Router  http.Handler
	Log     *zap.Logger
}

// RouteRegistrar mounts one handler group under /api/v1.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// New connects the stores and builds the router. The caller owns Close.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	app := &App{Config: cfg, DB: pool, Log: log, Metrics: metrics.New()}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir, log.Named("migrate")); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}
	if cfg.SeedTenant != "" {
		tenantID, err := db.EnsureTenant(ctx, pool, cfg.SeedTenant)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("seed tenant failed: %w", err)
		}
		log.Info("seed tenant ready", zap.String("tenant", cfg.SeedTenant), zap.String("tenant_id", tenantID))
	}

	cipher, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		app.Close()
		return nil, err
	}
	if !cipher.Configured() {
		log.Warn("DATA_ENCRYPTION_KEY not set; pay amounts and archived payslips are stored unencrypted")
	}

	employees := employee.NewStore(pool, cipher)
	attendanceStore := attendance.NewStore(pool)
	ledgerStore := ledger.NewStore(pool)
	auditService := audit.New(pool)

	opts := []payroll.Option{
		payroll.WithConcurrency(cfg.PayrollConcurrency),
		payroll.WithLogger(log),
		payroll.WithMetrics(app.Metrics),
		payroll.WithAuditLog(audit.NewLogger(auditService, log)),
	}
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Redis = client
		opts = append(opts, payroll.WithPaymentGuard(cache.NewPaymentLocks(client, cfg.PaymentLockTTL)))
	} else {
		log.Info("REDIS_URL not set; payment locks disabled, ledger idempotency still applies")
	}

	app.Payroll = payroll.NewService(attendanceStore, ledgerStore, employees, ledgerStore, payroll.NewStore(pool), opts...)
	app.Jobs = jobs.New(pool, app.Payroll, cfg.PayrollScheduleInterval, log)

	perms := auth.NewStaticPermissions()
	app.Router = NewRouter(cfg, log, app.Metrics, pool.Ping,
		payrollhandler.NewHandler(app.Payroll, ledgerStore, perms, log).WithPayslipArchive(cfg.PayslipDir, cipher),
		attendancehandler.NewHandler(attendanceStore, perms, log),
		employeehandler.NewHandler(employees, perms, log),
		audithandler.NewHandler(auditService, perms, log),
	)
	return app, nil
}

// NewRouter assembles the middleware chain, health checks and the API routes.
func NewRouter(cfg config.Config, log *zap.Logger, collector *metrics.Collector, ready func(context.Context) error, registrars ...RouteRegistrar) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log, collector))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, log))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if ready != nil {
			if err := ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled && collector != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.WithRateLimitLogger(log)))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.WithRateLimitLogger(log)))
		for _, registrar := range registrars {
			registrar.RegisterRoutes(r)
		}
	})

	return router
}

// Start launches the background payroll scheduler.
func (a *App) Start(ctx context.Context) {
	if a.Jobs != nil {
		a.Jobs.Start(ctx)
	}
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run loads configuration, serves until SIGINT or SIGTERM, then drains.
func Run() error {
	cfg := config.Load()
	log := logger.ForEnvironment(cfg.Environment, cfg.LogLevel)
	if cfg.LogFormat != "" {
		log = logger.New(cfg.LogLevel, cfg.LogFormat)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()
	app.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("payroll server listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Environment))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
