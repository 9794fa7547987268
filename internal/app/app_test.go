package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localboost/localboost/config"
	"github.com/localboost/localboost/internal/http/middleware"
	"github.com/localboost/localboost/pkg/distlock"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/mailer"
	pkgmocks "github.com/localboost/localboost/pkg/mocks"
	"github.com/localboost/localboost/pkg/sms"
)

func createTestConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		APIEndpoint: "https://api.example.com",
		Database: config.DatabaseConfig{
			User:     "postgres_test",
			Password: "postgres_test",
			Host:     "localhost",
			Port:     5432,
			DBName:   "localboost_test",
		},
		Server: config.ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Cron: config.CronConfig{Secret: "cron-secret"},
		Jobs: config.JobsConfig{
			BatchSize:                20,
			Parallelism:              2,
			SendTimeout:              time.Second,
			DefaultTestDurationHours: 4,
			ActionCommandMaxAttempts: 3,
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...AppOption) *App {
	opts = append([]AppOption{WithLogger(logger.NewTestLogger(t))}, opts...)
	a, ok := NewApp(cfg, opts...).(*App)
	require.True(t, ok, "app should be *App")
	return a
}

func TestNewApp(t *testing.T) {
	cfg := createTestConfig()
	a := newTestApp(t, cfg)

	assert.Equal(t, cfg, a.GetConfig())
	assert.NotNil(t, a.GetLogger())
	assert.NotNil(t, a.GetMux())
	assert.Nil(t, a.GetDB())
	assert.False(t, a.IsServerCreated())
	assert.Equal(t, 60*time.Second, a.shutdownTimeout)
}

func TestAppInitMailer(t *testing.T) {
	t.Run("development uses console senders", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.Environment = "development"
		a := newTestApp(t, cfg)

		require.NoError(t, a.InitMailer())
		_, isConsole := a.GetMailer().(*mailer.ConsoleMailer)
		assert.True(t, isConsole)
		assert.Equal(t, sms.ConsoleSender{}, a.sms)
	})

	t.Run("production uses SMTP and Twilio", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.Environment = "production"
		cfg.SMTP = config.SMTPConfig{Host: "smtp.example.com", Port: 587, FromEmail: "hello@example.com"}
		cfg.Twilio = config.TwilioConfig{AccountSID: "AC1", AuthToken: "token", FromNumber: "+15550000"}
		a := newTestApp(t, cfg)

		require.NoError(t, a.InitMailer())
		_, isSMTP := a.GetMailer().(*mailer.SMTPMailer)
		assert.True(t, isSMTP)
		_, isTwilio := a.sms.(*sms.TwilioClient)
		assert.True(t, isTwilio)
	})

	t.Run("production without Twilio has no SMS sender", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.Environment = "production"
		a := newTestApp(t, cfg)

		require.NoError(t, a.InitMailer())
		assert.Nil(t, a.sms)
	})

	t.Run("injected mailer is kept", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		m := pkgmocks.NewMockMailer(ctrl)
		a := newTestApp(t, createTestConfig(), WithMockMailer(m), WithSMSSender(pkgmocks.NewMockSender(ctrl)))
		require.NoError(t, a.InitMailer())
		assert.Same(t, m, a.GetMailer())
	})
}

func TestAppInitRedis_Disabled(t *testing.T) {
	a := newTestApp(t, createTestConfig())

	require.NoError(t, a.InitRedis())
	assert.Equal(t, distlock.Noop{}, a.locker)
	assert.Equal(t, distlock.Noop{}, a.deduper)
	assert.Nil(t, a.redis)
}

func TestAppInitRepositories(t *testing.T) {
	t.Run("requires a database", func(t *testing.T) {
		a := newTestApp(t, createTestConfig())
		err := a.InitRepositories()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database must be initialized")
	})

	t.Run("with database", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		a := newTestApp(t, createTestConfig(), WithMockDB(db))
		require.NoError(t, a.InitRepositories())
		assert.NotNil(t, a.GetContactRepository())
		assert.NotNil(t, a.GetBroadcastRepository())
		assert.NotNil(t, a.GetAutomationRepository())
		assert.NotNil(t, a.activityRepo)
		assert.NotNil(t, a.actionCommandRepo)
		assert.NotNil(t, a.subscriptionRepo)
		assert.NotNil(t, a.tenantRepo)
	})
}

// initComponents runs every step that does not need a live server
func initComponents(t *testing.T, cfg *config.Config) (*App, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctrl := gomock.NewController(t)
	a := newTestApp(t, cfg, WithMockDB(db), WithMockMailer(pkgmocks.NewMockMailer(ctrl)))

	require.NoError(t, a.InitDB())
	require.NoError(t, a.InitMailer())
	require.NoError(t, a.InitRedis())
	require.NoError(t, a.InitRepositories())
	require.NoError(t, a.InitServices())
	require.NoError(t, a.InitHandlers())
	return a, mock
}

func TestAppInitServicesAndHandlers(t *testing.T) {
	a, mock := initComponents(t, createTestConfig())

	assert.NotNil(t, a.broadcastService)
	assert.NotNil(t, a.broadcastScheduler)
	assert.NotNil(t, a.abTestController)
	assert.NotNil(t, a.automationEngine)
	assert.NotNil(t, a.actionCommandService)
	assert.NotNil(t, a.billingReconciler)
	assert.Nil(t, a.jobRunner, "jobs run in-process only when enabled")
	assert.Nil(t, a.limiter, "lead throttling is off when the cap is 0")

	handler := a.Handler()

	t.Run("health pings the database", func(t *testing.T) {
		mock.ExpectPing()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cron requires the secret", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/communication/broadcast-scheduler", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("billing webhook without secret", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/billing/webhook", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("tenant routes require the tenant header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/broadcasts.list", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("CORS preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/contacts.create", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestAppInitHandlers_LeadRateLimit(t *testing.T) {
	cfg := createTestConfig()
	cfg.Server.LeadsPerMinute = 1

	a, _ := initComponents(t, cfg)
	require.NotNil(t, a.limiter)
	t.Cleanup(a.limiter.Stop)

	handler := a.Handler()
	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/contacts.create", strings.NewReader(`{}`))
		req.Header.Set(middleware.TenantHeader, "tenant-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.NotEqual(t, http.StatusTooManyRequests, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestAppInitServices_InProcessJobs(t *testing.T) {
	cfg := createTestConfig()
	cfg.Jobs.InProcess = true
	cfg.Jobs.BroadcastSchedulerEvery = time.Minute
	cfg.Jobs.ABTestWinnerEvery = 5 * time.Minute
	cfg.Jobs.AutomationEngineEvery = time.Minute
	cfg.Jobs.ActionCommandsEvery = 30 * time.Second

	a, _ := initComponents(t, cfg)
	require.NotNil(t, a.jobRunner)

	names := make([]string, 0)
	for _, job := range a.inProcessJobs() {
		names = append(names, job.Name)
		assert.Positive(t, job.Interval)
	}
	assert.Equal(t, []string{"broadcast_scheduler", "ab_test_winner", "automation_engine", "action_commands"}, names)
}

func TestAppShutdown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	a := newTestApp(t, createTestConfig(), WithMockDB(db))
	shutdownCtx := a.GetShutdownContext()

	require.NoError(t, a.Shutdown(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())

	select {
	case <-shutdownCtx.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("shutdown context should be cancelled")
	}
}

func TestGracefulShutdownMiddleware(t *testing.T) {
	a := newTestApp(t, createTestConfig())

	var sawShutdownCtx bool
	wrapped := a.gracefulShutdownMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawShutdownCtx = r.Context().Value(shutdownCtxKey{}).(context.Context)
		assert.Equal(t, int64(1), a.GetActiveRequestCount())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sawShutdownCtx)
	assert.Equal(t, int64(0), a.GetActiveRequestCount())

	a.shutdownCancel()
	assert.True(t, a.isShuttingDown())

	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Server is shutting down")
}

func TestWaitForServerStart(t *testing.T) {
	a := newTestApp(t, createTestConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, a.WaitForServerStart(ctx))

	a.serverMu.Lock()
	a.serverStarted = nil
	a.serverMu.Unlock()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	assert.False(t, a.WaitForServerStart(ctx2))
}

func TestSetShutdownTimeout(t *testing.T) {
	a := newTestApp(t, createTestConfig())
	a.SetShutdownTimeout(90 * time.Second)
	assert.Equal(t, 90*time.Second, a.shutdownTimeout)
}
