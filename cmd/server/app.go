package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/dibs-api/internal/api/middleware"
	"github.com/phrazzld/dibs-api/internal/catalog"
	"github.com/phrazzld/dibs-api/internal/config"
	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/events"
	"github.com/phrazzld/dibs-api/internal/notify"
	"github.com/phrazzld/dibs-api/internal/platform/sqlstore"
	"github.com/phrazzld/dibs-api/internal/platform/telemetry"
	"github.com/phrazzld/dibs-api/internal/service/admin"
	"github.com/phrazzld/dibs-api/internal/service/auth"
	"github.com/phrazzld/dibs-api/internal/service/loan"
	"github.com/phrazzld/dibs-api/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	items  *sqlstore.ItemStore
	people *sqlstore.PersonStore

	// Services
	jwtService   auth.JWTService
	loginService *auth.LoginService
	loanService  loan.Service
	adminService admin.Service
	lookup       catalog.Lookup

	// Event and task handling
	eventEmitter *events.InMemoryEventEmitter
	taskQueue    *task.TaskQueue
	workerPool   *task.WorkerPool

	// Observability
	telemetry *telemetry.Provider
	registry  *prometheus.Registry
	usage     *middleware.UsageCounter

	loginLimiter *middleware.RateLimiter
}

// loanPolicy converts the loan configuration into the engine's policy.
func loanPolicy(cfg config.LoanConfig) (domain.LoanPolicy, error) {
	grant, err := domain.ParseRounding(cfg.GrantRounding)
	if err != nil {
		return domain.LoanPolicy{}, fmt.Errorf("loan.grant_rounding: %w", err)
	}
	ret, err := domain.ParseRounding(cfg.ReturnRounding)
	if err != nil {
		return domain.LoanPolicy{}, fmt.Errorf("loan.return_rounding: %w", err)
	}
	return domain.LoanPolicy{
		Cooldown:       time.Duration(cfg.CooldownMinutes) * time.Minute,
		GrantRounding:  grant,
		ReturnRounding: ret,
	}, nil
}

// newApplication creates a new application instance with all dependencies initialized.
// The worker pool is started here; cleanup stops it.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	dialect sqlstore.Dialect,
	tp *telemetry.Provider,
) (*application, error) {
	if tp == nil {
		tp = telemetry.Noop()
	}

	app := &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		telemetry: tp,
		registry:  prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize stores
	app.items = sqlstore.NewItemStore(db, dialect, logger)
	loans := sqlstore.NewLoanStore(db, dialect, logger)
	history := sqlstore.NewHistoryStore(db, dialect, logger)
	app.people = sqlstore.NewPersonStore(db, dialect, logger)

	metrics, err := loan.NewMetrics(app.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register loan metrics: %w", err)
	}

	// Notification pipeline: events -> notifier -> queue -> workers -> mailer
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.taskQueue = task.NewTaskQueue(cfg.Task.QueueSize, logger)
	taskMetrics, err := task.NewMetrics(app.registry, app.taskQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to register task metrics: %w", err)
	}
	app.workerPool = task.NewWorkerPool(app.taskQueue, task.WorkerPoolConfig{
		WorkerCount: cfg.Task.WorkerCount,
		MaxAttempts: cfg.Task.MaxAttempts,
		RetryDelay:  time.Duration(cfg.Task.RetryDelaySeconds) * time.Second,
		Metrics:     taskMetrics,
	}, logger)

	var mailer notify.Mailer
	if cfg.Mail.Enabled {
		mailer = notify.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port)
		logger.Info("Loan emails enabled", slog.String("host", cfg.Mail.Host), slog.Int("port", cfg.Mail.Port))
	} else {
		mailer = notify.NewLogMailer(logger)
	}
	notifier := notify.NewTaskNotifier(app.taskQueue, mailer, notify.Settings{
		Sender:      cfg.Mail.Sender,
		BaseURL:     cfg.Server.BaseURL,
		FeedbackURL: cfg.Mail.FeedbackURL,
	}, logger)
	app.eventEmitter.RegisterHandler(notify.GrantedHandler(notifier), events.LoanGranted)
	app.eventEmitter.RegisterHandler(metrics.EventCounter())

	// Loan engine
	policy, err := loanPolicy(cfg.Loan)
	if err != nil {
		return nil, err
	}
	engine := loan.NewEngine(
		db,
		sqlstore.NewLedgerLocker(dialect),
		app.items,
		loans,
		history,
		app.people,
		app.eventEmitter,
		loan.Options{
			Policy:        policy,
			Debug:         cfg.Server.Debug,
			ExcludedUsers: cfg.Loan.ExcludedUsers,
			ExcludeStaff:  cfg.Loan.ExcludeStaffFromStats,
		},
		logger,
	)
	ledger := loan.ChainLedger(engine,
		loan.LoggingInterceptor(logger),
		loan.TracingInterceptor(tp.TracerProvider()),
		metrics.Interceptor(),
	)
	app.loanService = ledger
	logger.Info("Loan engine initialized",
		slog.Duration("cooldown", policy.Cooldown),
		slog.String("grant_rounding", string(policy.GrantRounding)),
		slog.String("return_rounding", string(policy.ReturnRounding)))

	// Catalog and administration
	if cfg.Catalog.BaseURL != "" {
		app.lookup, err = catalog.NewHTTPLookup(
			cfg.Catalog.BaseURL,
			time.Duration(cfg.Catalog.TimeoutSeconds)*time.Second,
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize catalog lookup: %w", err)
		}
	} else {
		logger.Warn("No catalog configured, new items get placeholder records")
		app.lookup = catalog.NewUnconfiguredLookup()
	}

	app.adminService, err = admin.NewService(app.items, loans, history, ledger, app.lookup, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin service: %w", err)
	}

	// Authentication
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.loginService, err = auth.NewLoginService(app.people, auth.NewBcryptVerifier(), app.jwtService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create login service: %w", err)
	}

	app.usage = middleware.NewUsageCounter(time.Duration(cfg.Telemetry.UsageWindowMinutes) * time.Minute)
	app.loginLimiter = middleware.NewRateLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginBurst)

	app.workerPool.Start()

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Refuse new notifications, then give queued emails a chance to go out
	if app.taskQueue != nil {
		app.taskQueue.Close()
	}
	if app.workerPool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := app.workerPool.Shutdown(ctx); err != nil {
			app.logger.Warn("Dropped queued tasks on shutdown", "error", err)
		}
		cancel()
	}

	if app.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := app.telemetry.Shutdown(ctx); err != nil {
			app.logger.Error("Error shutting down telemetry", "error", err)
		}
		cancel()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
