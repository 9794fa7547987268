package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"contrib.go.opencensus.io/integrations/ocsql"
	"github.com/redis/go-redis/v9"

	"github.com/localboost/localboost/config"
	"github.com/localboost/localboost/internal/database"
	"github.com/localboost/localboost/internal/domain"
	httpHandler "github.com/localboost/localboost/internal/http"
	"github.com/localboost/localboost/internal/http/middleware"
	"github.com/localboost/localboost/internal/repository"
	"github.com/localboost/localboost/internal/service"
	"github.com/localboost/localboost/internal/service/broadcast"
	"github.com/localboost/localboost/pkg/distlock"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/mailer"
	"github.com/localboost/localboost/pkg/metrics"
	"github.com/localboost/localboost/pkg/ratelimiter"
	"github.com/localboost/localboost/pkg/sms"
	"github.com/localboost/localboost/pkg/tracing"
)

// AppInterface defines the interface for the App
type AppInterface interface {
	Initialize() error
	Start() error
	Shutdown(ctx context.Context) error

	GetConfig() *config.Config
	GetLogger() logger.Logger
	GetMux() *http.ServeMux
	GetDB() *sql.DB
	GetMailer() mailer.Mailer

	GetContactRepository() domain.ContactRepository
	GetBroadcastRepository() domain.BroadcastRepository
	GetAutomationRepository() domain.AutomationRepository

	IsServerCreated() bool
	WaitForServerStart(ctx context.Context) bool

	InitDB() error
	InitMailer() error
	InitTracing() error
	InitRedis() error
	InitRepositories() error
	InitServices() error
	InitHandlers() error

	SetShutdownTimeout(timeout time.Duration)
	GetActiveRequestCount() int64
	GetShutdownContext() context.Context
}

type shutdownCtxKey struct{}

// App encapsulates the application dependencies and configuration
type App struct {
	config    *config.Config
	logger    logger.Logger
	db        *sql.DB
	mailer    mailer.Mailer
	sms       sms.Sender
	redis     *redis.Client
	locker    distlock.Locker
	deduper   distlock.Deduper
	exporters *tracing.Exporters
	limiter   *ratelimiter.RateLimiter

	// Repositories
	contactRepo       domain.ContactRepository
	activityRepo      domain.ActivityRepository
	broadcastRepo     domain.BroadcastRepository
	automationRepo    domain.AutomationRepository
	actionCommandRepo domain.ActionCommandRepository
	subscriptionRepo  domain.SubscriptionRepository
	tenantRepo        domain.TenantRepository

	// Services
	messageSender        *service.MessageSender
	audienceResolver     *service.AudienceResolver
	contactService       *service.ContactService
	automationService    *service.AutomationService
	automationEngine     *service.AutomationEngine
	actionCommandService *service.ActionCommandService
	billingReconciler    *service.BillingReconciler
	broadcastService     *broadcast.Service
	broadcastScheduler   *broadcast.Scheduler
	abTestController     *broadcast.ABTestController
	jobRunner            *service.JobRunner

	// HTTP
	mux    *http.ServeMux
	server *http.Server

	serverMu      sync.RWMutex
	serverStarted chan struct{}

	shutdownCtx     context.Context
	shutdownCancel  context.CancelFunc
	activeRequests  int64
	requestWg       sync.WaitGroup
	shutdownTimeout time.Duration
}

// AppOption defines a functional option for configuring the App
type AppOption func(*App)

// WithMockDB configures the app to use a mock database
func WithMockDB(db *sql.DB) AppOption {
	return func(a *App) {
		a.db = db
	}
}

// WithMockMailer configures the app to use a mock mailer
func WithMockMailer(m mailer.Mailer) AppOption {
	return func(a *App) {
		a.mailer = m
	}
}

// WithSMSSender replaces the SMS provider
func WithSMSSender(s sms.Sender) AppOption {
	return func(a *App) {
		a.sms = s
	}
}

// WithLogger sets a custom logger
func WithLogger(logger logger.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, opts ...AppOption) AppInterface {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	app := &App{
		config:          cfg,
		logger:          logger.NewLoggerWithLevel(cfg.LogLevel),
		mux:             http.NewServeMux(),
		serverStarted:   make(chan struct{}),
		shutdownCtx:     shutdownCtx,
		shutdownCancel:  shutdownCancel,
		shutdownTimeout: 60 * time.Second,
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// InitTracing initializes OpenCensus tracing, the metrics exporters and the
// job and delivery views
func (a *App) InitTracing() error {
	tracingConfig := &a.config.Tracing

	exporters, err := tracing.InitTracing(tracingConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.exporters = exporters

	if err := metrics.Register(); err != nil {
		return fmt.Errorf("failed to register metrics views: %w", err)
	}

	if tracingConfig.Enabled {
		a.logger.WithField("trace_exporter", tracingConfig.TraceExporter).
			WithField("metrics_exporter", tracingConfig.MetricsExporter).
			WithField("sampling_rate", tracingConfig.SamplingProbability).
			Info("Tracing initialized successfully")
	}

	return nil
}

// InitDB connects to postgres, creates the schema and sizes the pool
func (a *App) InitDB() error {
	if a.db != nil {
		return nil
	}

	password := a.config.Database.Password
	maskedPassword := ""
	if len(password) > 0 {
		maskedPassword = fmt.Sprintf("%c...%c", password[0], password[len(password)-1])
	}
	a.logger.Info(fmt.Sprintf("Connecting to database %s:%d, user %s, sslmode %s, password: %s, dbname: %s",
		a.config.Database.Host, a.config.Database.Port, a.config.Database.User,
		a.config.Database.SSLMode, maskedPassword, a.config.Database.DBName))

	if err := database.EnsureDatabaseExists(database.GetPostgresDSN(&a.config.Database), a.config.Database.DBName); err != nil {
		a.logger.Error(err.Error())
		return fmt.Errorf("failed to ensure database exists: %w", err)
	}

	driverName := "postgres"
	if a.config.Tracing.Enabled {
		var err error
		driverName, err = ocsql.Register(driverName, ocsql.WithAllTraceOptions())
		if err != nil {
			return fmt.Errorf("failed to register opencensus sql driver: %w", err)
		}
		a.logger.Info("Database driver wrapped with OpenCensus tracing")
	}

	db, err := database.Connect(&a.config.Database, driverName)
	if err != nil {
		return err
	}

	if err := database.InitializeDatabase(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	a.db = db
	return nil
}

// InitMailer picks the SMTP mailer, or the console mailer in development.
// The SMS provider follows the same rule.
func (a *App) InitMailer() error {
	if a.mailer == nil {
		if a.config.IsDevelopment() {
			a.mailer = mailer.NewConsoleMailer()
			a.logger.Info("Using console mailer for development")
		} else {
			a.mailer = mailer.NewSMTPMailer(&mailer.Config{
				SMTPHost:     a.config.SMTP.Host,
				SMTPPort:     a.config.SMTP.Port,
				SMTPUsername: a.config.SMTP.Username,
				SMTPPassword: a.config.SMTP.Password,
				FromEmail:    a.config.SMTP.FromEmail,
				FromName:     a.config.SMTP.FromName,
			})
			a.logger.Info("Using SMTP mailer")
		}
	}

	if a.sms == nil {
		switch {
		case a.config.SMSConfigured():
			a.sms = sms.NewTwilioClient(sms.Config{
				AccountSID: a.config.Twilio.AccountSID,
				AuthToken:  a.config.Twilio.AuthToken,
				FromNumber: a.config.Twilio.FromNumber,
				BaseURL:    a.config.Twilio.BaseURL,
				Timeout:    a.config.Twilio.Timeout,
			})
			a.logger.Info("Using Twilio for SMS")
		case a.config.IsDevelopment():
			a.sms = sms.ConsoleSender{}
			a.logger.Info("Using console SMS sender for development")
		default:
			a.logger.Warn("Twilio is not configured, SMS sends will fail")
		}
	}

	return nil
}

// InitRedis connects the job locks and webhook dedupe to redis. Without an
// address both fall back to no-ops, which is only safe on a single instance.
func (a *App) InitRedis() error {
	if !a.config.RedisEnabled() {
		a.locker = distlock.Noop{}
		a.deduper = distlock.Noop{}
		a.logger.Info("Redis not configured, job locks and webhook dedupe disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := distlock.NewRedisClient(ctx, a.config.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	locker := distlock.NewRedisLocker(client)
	a.redis = client
	a.locker = locker
	a.deduper = locker
	a.logger.WithField("addr", a.config.Redis.Addr).Info("Connected to redis")
	return nil
}

// InitRepositories initializes all repositories
func (a *App) InitRepositories() error {
	if a.db == nil {
		return fmt.Errorf("database must be initialized before repositories")
	}

	a.contactRepo = repository.NewContactRepository(a.db)
	a.activityRepo = repository.NewActivityRepository(a.db)
	a.broadcastRepo = repository.NewBroadcastRepository(a.db)
	a.automationRepo = repository.NewAutomationRepository(a.db)
	a.actionCommandRepo = repository.NewActionCommandRepository(a.db)
	a.subscriptionRepo = repository.NewSubscriptionRepository(a.db)
	a.tenantRepo = repository.NewTenantRepository(a.db)

	return nil
}

func (a *App) broadcastConfig() *broadcast.Config {
	jobs := a.config.Jobs
	return &broadcast.Config{
		BatchSize:                jobs.BatchSize,
		MaxParallelism:           jobs.Parallelism,
		SendTimeout:              jobs.SendTimeout,
		DefaultTestDurationHours: jobs.DefaultTestDurationHours,
		TrackingBaseURL:          a.config.APIEndpoint,
	}
}

// InitServices initializes all application services
func (a *App) InitServices() error {
	jobs := a.config.Jobs

	a.messageSender = service.NewMessageSender(a.mailer, a.sms, jobs.SendTimeout, a.logger)
	a.audienceResolver = service.NewAudienceResolver(a.contactRepo, a.logger)

	a.automationService = service.NewAutomationService(a.automationRepo, a.contactRepo, a.activityRepo, a.logger)
	a.automationEngine = service.NewAutomationEngine(
		a.automationRepo,
		a.contactRepo,
		a.activityRepo,
		a.messageSender,
		service.AutomationEngineConfig{
			BatchSize:   jobs.BatchSize,
			Parallelism: jobs.Parallelism,
			ClaimLease:  jobs.AutomationClaimLease,
			RetryDelay:  jobs.AutomationRetryDelay,
		},
		a.logger,
	)

	a.actionCommandService = service.NewActionCommandService(a.actionCommandRepo, jobs.BatchSize, jobs.ActionCommandMaxAttempts, a.logger)
	a.actionCommandService.RegisterAutomationHandlers(a.automationService)

	a.contactService = service.NewContactService(a.contactRepo, a.activityRepo, a.audienceResolver, a.actionCommandService, a.logger)

	var fetcher domain.SubscriptionFetcher
	if a.config.Billing.StripeSecretKey != "" {
		fetcher = service.NewStripeSubscriptionFetcher(a.config.Billing.StripeSecretKey)
	}
	a.billingReconciler = service.NewBillingReconciler(
		a.subscriptionRepo,
		a.tenantRepo,
		a.contactRepo,
		a.activityRepo,
		fetcher,
		a.mailer,
		a.logger,
	)

	cfg := a.broadcastConfig()
	clock := broadcast.NewRealTimeProvider()
	fanout := broadcast.NewFanOutSender(a.messageSender, a.broadcastRepo, cfg, a.logger)
	a.abTestController = broadcast.NewABTestController(a.broadcastRepo, a.audienceResolver, fanout, cfg, clock, a.logger)
	a.broadcastScheduler = broadcast.NewScheduler(a.broadcastRepo, a.audienceResolver, fanout, a.abTestController, cfg, clock, a.logger)
	a.broadcastService = broadcast.NewService(a.broadcastRepo, cfg, clock, a.logger)

	if jobs.InProcess {
		a.jobRunner = service.NewJobRunner(a.inProcessJobs(), a.locker, a.logger)
	}

	return nil
}

// inProcessJobs mirrors the cron endpoints for deployments without an
// external scheduler
func (a *App) inProcessJobs() []service.Job {
	jobs := a.config.Jobs
	return []service.Job{
		{
			Name:     "broadcast_scheduler",
			Interval: jobs.BroadcastSchedulerEvery,
			Run: func(ctx context.Context) (int, error) {
				summary, err := a.broadcastScheduler.Run(ctx)
				if summary == nil {
					return 0, err
				}
				return summary.Due, err
			},
		},
		{
			Name:     "ab_test_winner",
			Interval: jobs.ABTestWinnerEvery,
			Run: func(ctx context.Context) (int, error) {
				summary, err := a.abTestController.RunWinnerCheck(ctx)
				if summary == nil {
					return 0, err
				}
				return summary.Due, err
			},
		},
		{
			Name:     "automation_engine",
			Interval: jobs.AutomationEngineEvery,
			Run: func(ctx context.Context) (int, error) {
				summary, err := a.automationEngine.Run(ctx)
				if summary == nil {
					return 0, err
				}
				return summary.Claimed, err
			},
		},
		{
			Name:     "action_commands",
			Interval: jobs.ActionCommandsEvery,
			Run: func(ctx context.Context) (int, error) {
				summary, err := a.actionCommandService.ProcessPending(ctx)
				if summary == nil {
					return 0, err
				}
				return summary.Claimed, err
			},
		},
	}
}

// InitHandlers registers every route on the mux
func (a *App) InitHandlers() error {
	if !a.config.CronConfigured() {
		a.logger.Warn("CRON_SECRET is not set, cron endpoints will answer 500")
	}

	// an unset webhook secret must reach the handler as a nil interface
	var billingParser httpHandler.BillingEventParser
	if a.config.BillingConfigured() {
		billingParser = service.NewStripeEventParser(a.config.Billing.StripeWebhookSecret, a.config.Billing.WebhookTolerance)
	} else {
		a.logger.Warn("STRIPE_WEBHOOK_SECRET is not set, billing webhooks will answer 500")
	}

	// the handler must see a nil interface when throttling is off
	var leadLimiter middleware.Limiter
	if a.config.Server.LeadsPerMinute > 0 {
		a.limiter = ratelimiter.NewRateLimiter(time.Minute)
		a.limiter.SetPolicy("contacts.create", a.config.Server.LeadsPerMinute, time.Minute)
		leadLimiter = a.limiter
	}

	var metricsHandler http.Handler
	if a.exporters != nil {
		metricsHandler = a.exporters.MetricsHandler
	}

	handlers := []interface{ RegisterRoutes(*http.ServeMux) }{
		httpHandler.NewCronHandler(
			a.broadcastScheduler,
			a.abTestController,
			a.automationEngine,
			a.actionCommandService,
			a.config.Cron.Secret,
			a.logger,
		),
		httpHandler.NewBillingWebhookHandler(billingParser, a.billingReconciler, a.deduper, a.logger),
		httpHandler.NewBroadcastHandler(a.broadcastService, a.logger),
		httpHandler.NewAutomationHandler(a.automationService, a.logger),
		httpHandler.NewContactHandler(a.contactService, leadLimiter, a.logger),
		httpHandler.NewTrackingHandler(a.broadcastService, a.logger),
		httpHandler.NewOpsHandler(a.db, metricsHandler),
	}
	for _, h := range handlers {
		h.RegisterRoutes(a.mux)
	}

	return nil
}

// Handler returns the mux wrapped with the request middleware chain
func (a *App) Handler() http.Handler {
	var handler http.Handler = a.mux

	handler = a.gracefulShutdownMiddleware(handler)

	if a.config.Tracing.Enabled {
		handler = middleware.TracingMiddleware(handler)
		a.logger.Info("OpenCensus tracing middleware enabled")
	}

	return middleware.CORSMiddleware(handler)
}

// Start starts the HTTP server and, when enabled, the in-process jobs
func (a *App) Start() error {
	handler := a.Handler()

	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
	a.logger.WithField("address", addr).
		WithField("api_endpoint", a.config.APIEndpoint).
		Info(fmt.Sprintf("Server starting on %s", addr))

	a.serverMu.Lock()
	if a.serverStarted != nil {
		close(a.serverStarted)
	}
	a.serverStarted = make(chan struct{})

	a.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverStarted := a.serverStarted
	a.serverMu.Unlock()

	close(serverStarted)

	if a.jobRunner != nil {
		a.jobRunner.Start(a.shutdownCtx)
	}

	return a.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Starting graceful shutdown...")

	a.shutdownCancel()

	if a.jobRunner != nil {
		a.logger.Info("Stopping in-process jobs")
		a.jobRunner.Stop()
	}

	a.serverMu.RLock()
	server := a.server
	a.serverMu.RUnlock()

	if server == nil {
		a.logger.Info("No server to shutdown")
		return a.cleanupResources(ctx)
	}

	a.logger.WithField("active_requests", a.getActiveRequestCount()).Info("Active requests at shutdown start")

	shutdownTimeout := a.shutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < shutdownTimeout {
			shutdownTimeout = remaining - time.Second
			if shutdownTimeout < 0 {
				shutdownTimeout = 0
			}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	serverShutdownDone := make(chan error, 1)
	go func() {
		a.logger.WithField("timeout", shutdownTimeout).Info("Starting HTTP server shutdown")
		serverShutdownDone <- server.Shutdown(shutdownCtx)
	}()

	requestsDone := make(chan struct{})
	go func() {
		a.requestWg.Wait()
		close(requestsDone)
	}()

	var shutdownErr error
	select {
	case err := <-serverShutdownDone:
		shutdownErr = err
		a.logger.Info("HTTP server shutdown completed")
	case <-shutdownCtx.Done():
		a.logger.Warn("Shutdown timeout reached")
		shutdownErr = fmt.Errorf("shutdown timeout exceeded")
	}

	if shutdownErr == nil {
		select {
		case <-requestsDone:
		case <-time.After(2 * time.Second):
			if active := a.getActiveRequestCount(); active > 0 {
				a.logger.WithField("active_requests", active).Warn("Some requests still active, proceeding with shutdown")
			}
		}
	}

	if cleanupErr := a.cleanupResources(ctx); cleanupErr != nil {
		a.logger.WithField("error", cleanupErr.Error()).Error("Error during resource cleanup")
		if shutdownErr == nil {
			shutdownErr = cleanupErr
		}
	}

	if shutdownErr != nil {
		a.logger.WithField("error", shutdownErr.Error()).Error("Graceful shutdown completed with errors")
	} else {
		a.logger.Info("Graceful shutdown completed successfully")
	}

	return shutdownErr
}

// cleanupResources closes redis and the database
func (a *App) cleanupResources(ctx context.Context) error {
	a.logger.Info("Cleaning up resources...")

	if a.limiter != nil {
		a.limiter.Stop()
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithField("error", err.Error()).Warn("Error closing redis client")
		}
	}

	if a.db != nil {
		if a.config.Tracing.Enabled {
			if err := ocsql.RecordStats(a.db, 5*time.Second); err != nil {
				a.logger.WithField("error", err.Error()).Error("Failed to record final database stats for tracing")
			}
		}

		a.logger.Info("Closing database connection")
		if err := a.db.Close(); err != nil {
			a.logger.WithField("error", err.Error()).Error("Error closing database connection")
			return err
		}
	}

	a.logger.Info("Resource cleanup completed")
	return nil
}

// IsServerCreated safely checks if the server has been created
func (a *App) IsServerCreated() bool {
	a.serverMu.RLock()
	defer a.serverMu.RUnlock()
	return a.server != nil
}

// WaitForServerStart waits for the server to be created. It returns false
// when ctx expires first.
func (a *App) WaitForServerStart(ctx context.Context) bool {
	a.serverMu.RLock()
	started := a.serverStarted
	a.serverMu.RUnlock()

	if started == nil {
		a.logger.Error("serverStarted channel is nil - server initialization error")
		<-ctx.Done()
		return false
	}

	select {
	case <-started:
		return a.IsServerCreated()
	case <-ctx.Done():
		return false
	}
}

// Initialize sets up all components of the application
func (a *App) Initialize() error {
	a.logger.WithField("version", a.config.Version).Info("Starting LocalBoost application")

	steps := []func() error{
		a.InitTracing,
		a.InitDB,
		a.InitMailer,
		a.InitRedis,
		a.InitRepositories,
		a.InitServices,
		a.InitHandlers,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	a.logger.Info("Application successfully initialized")
	return nil
}

func (a *App) GetConfig() *config.Config {
	return a.config
}

func (a *App) GetLogger() logger.Logger {
	return a.logger
}

func (a *App) GetMux() *http.ServeMux {
	return a.mux
}

func (a *App) GetDB() *sql.DB {
	return a.db
}

func (a *App) GetMailer() mailer.Mailer {
	return a.mailer
}

func (a *App) GetContactRepository() domain.ContactRepository {
	return a.contactRepo
}

func (a *App) GetBroadcastRepository() domain.BroadcastRepository {
	return a.broadcastRepo
}

func (a *App) GetAutomationRepository() domain.AutomationRepository {
	return a.automationRepo
}

func (a *App) incrementActiveRequests() {
	atomic.AddInt64(&a.activeRequests, 1)
	a.requestWg.Add(1)
}

func (a *App) decrementActiveRequests() {
	atomic.AddInt64(&a.activeRequests, -1)
	a.requestWg.Done()
}

func (a *App) getActiveRequestCount() int64 {
	return atomic.LoadInt64(&a.activeRequests)
}

// GetActiveRequestCount returns the number of in-flight requests
func (a *App) GetActiveRequestCount() int64 {
	return a.getActiveRequestCount()
}

// SetShutdownTimeout sets the timeout for graceful shutdown
func (a *App) SetShutdownTimeout(timeout time.Duration) {
	a.shutdownTimeout = timeout
	a.logger.WithField("shutdown_timeout", timeout.String()).Info("Shutdown timeout configured")
}

// GetShutdownContext is cancelled when shutdown begins
func (a *App) GetShutdownContext() context.Context {
	return a.shutdownCtx
}

func (a *App) isShuttingDown() bool {
	select {
	case <-a.shutdownCtx.Done():
		return true
	default:
		return false
	}
}

// gracefulShutdownMiddleware tracks active requests and refuses new ones
// once shutdown started
func (a *App) gracefulShutdownMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.isShuttingDown() {
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}

		a.incrementActiveRequests()
		defer a.decrementActiveRequests()

		ctx := context.WithValue(r.Context(), shutdownCtxKey{}, a.shutdownCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var _ AppInterface = (*App)(nil)
