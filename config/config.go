package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const VERSION = "1.4"

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Tracing     TracingConfig
	SMTP        SMTPConfig
	Twilio      TwilioConfig
	Billing     BillingConfig
	Redis       RedisConfig
	Cron        CronConfig
	Jobs        JobsConfig
	Environment string
	APIEndpoint string
	LogLevel    string
	Version     string
}

type ServerConfig struct {
	Port int
	Host string

	// LeadsPerMinute caps contact creation per tenant, 0 disables the cap
	LeadsPerMinute int
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type TracingConfig struct {
	Enabled             bool
	ServiceName         string
	SamplingProbability float64

	// "jaeger", "zipkin", "datadog", "none"
	TraceExporter string

	JaegerEndpoint      string
	ZipkinEndpoint      string
	DatadogAgentAddress string

	// "prometheus", "datadog", "none" or a comma-separated list
	MetricsExporter string
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	Timeout    time.Duration
}

// BillingConfig holds the Stripe credentials. Both may be empty: the webhook
// endpoint then answers 500 instead of the server refusing to boot.
type BillingConfig struct {
	StripeSecretKey     string
	StripeWebhookSecret string
	WebhookTolerance    time.Duration
}

// RedisConfig is optional; an empty Addr disables job locks and event dedupe.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CronConfig struct {
	Secret string
}

type JobsConfig struct {
	InProcess                bool
	BroadcastSchedulerEvery  time.Duration
	ABTestWinnerEvery        time.Duration
	AutomationEngineEvery    time.Duration
	ActionCommandsEvery      time.Duration
	BatchSize                int
	Parallelism              int
	SendTimeout              time.Duration
	DefaultTestDurationHours int
	AutomationClaimLease     time.Duration
	AutomationRetryDelay     time.Duration
	ActionCommandMaxAttempts int
}

// LoadOptions contains options for loading configuration
type LoadOptions struct {
	EnvFile string // Optional environment file to load (e.g., ".env", ".env.test")
}

// Load loads the configuration with default options
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{EnvFile: ".env"})
}

// LoadWithOptions loads the configuration with the specified options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("RATE_LIMIT_LEADS_PER_MINUTE", 120)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "localboost")
	v.SetDefault("DB_SSLMODE", "require")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("VERSION", VERSION)

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM_NAME", "LocalBoost")

	v.SetDefault("TWILIO_BASE_URL", "https://api.twilio.com")
	v.SetDefault("TWILIO_TIMEOUT", "10s")

	v.SetDefault("STRIPE_WEBHOOK_TOLERANCE", "5m")

	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JOBS_IN_PROCESS", false)
	v.SetDefault("JOBS_BROADCAST_SCHEDULER_INTERVAL", "1m")
	v.SetDefault("JOBS_AB_TEST_WINNER_INTERVAL", "5m")
	v.SetDefault("JOBS_AUTOMATION_ENGINE_INTERVAL", "1m")
	v.SetDefault("JOBS_ACTION_COMMANDS_INTERVAL", "30s")
	v.SetDefault("JOBS_BATCH_SIZE", 20)
	v.SetDefault("JOBS_PARALLELISM", 8)
	v.SetDefault("JOBS_SEND_TIMEOUT", "15s")
	v.SetDefault("JOBS_AB_TEST_DURATION_HOURS", 4)
	v.SetDefault("JOBS_AUTOMATION_CLAIM_LEASE", "5m")
	v.SetDefault("JOBS_AUTOMATION_RETRY_DELAY", "1m")
	v.SetDefault("JOBS_ACTION_COMMAND_MAX_ATTEMPTS", 3)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "localboost-api")
	v.SetDefault("TRACING_SAMPLING_PROBABILITY", 0.1)
	v.SetDefault("TRACING_TRACE_EXPORTER", "none")
	v.SetDefault("TRACING_JAEGER_ENDPOINT", "http://localhost:14268/api/traces")
	v.SetDefault("TRACING_ZIPKIN_ENDPOINT", "http://localhost:9411/api/v2/spans")
	v.SetDefault("TRACING_DATADOG_AGENT_ADDRESS", "localhost:8126")
	v.SetDefault("TRACING_METRICS_EXPORTER", "prometheus")

	if opts.EnvFile != "" {
		v.SetConfigName(opts.EnvFile)
		v.SetConfigType("env")

		currentPath, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting current directory: %w", err)
		}

		v.AddConfigPath(currentPath)

		if err := v.ReadInConfig(); err != nil {
			// It's okay if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config := &Config{
		Server: ServerConfig{
			Port:           v.GetInt("SERVER_PORT"),
			Host:           v.GetString("SERVER_HOST"),
			LeadsPerMinute: v.GetInt("RATE_LIMIT_LEADS_PER_MINUTE"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			DBName:       v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		SMTP: SMTPConfig{
			Host:      v.GetString("SMTP_HOST"),
			Port:      v.GetInt("SMTP_PORT"),
			Username:  v.GetString("SMTP_USERNAME"),
			Password:  v.GetString("SMTP_PASSWORD"),
			FromEmail: v.GetString("SMTP_FROM_EMAIL"),
			FromName:  v.GetString("SMTP_FROM_NAME"),
		},
		Twilio: TwilioConfig{
			AccountSID: v.GetString("TWILIO_ACCOUNT_SID"),
			AuthToken:  v.GetString("TWILIO_AUTH_TOKEN"),
			FromNumber: v.GetString("TWILIO_FROM_NUMBER"),
			BaseURL:    v.GetString("TWILIO_BASE_URL"),
			Timeout:    v.GetDuration("TWILIO_TIMEOUT"),
		},
		Billing: BillingConfig{
			StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
			WebhookTolerance:    v.GetDuration("STRIPE_WEBHOOK_TOLERANCE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Cron: CronConfig{
			Secret: v.GetString("CRON_SECRET"),
		},
		Jobs: JobsConfig{
			InProcess:                v.GetBool("JOBS_IN_PROCESS"),
			BroadcastSchedulerEvery:  v.GetDuration("JOBS_BROADCAST_SCHEDULER_INTERVAL"),
			ABTestWinnerEvery:        v.GetDuration("JOBS_AB_TEST_WINNER_INTERVAL"),
			AutomationEngineEvery:    v.GetDuration("JOBS_AUTOMATION_ENGINE_INTERVAL"),
			ActionCommandsEvery:      v.GetDuration("JOBS_ACTION_COMMANDS_INTERVAL"),
			BatchSize:                v.GetInt("JOBS_BATCH_SIZE"),
			Parallelism:              v.GetInt("JOBS_PARALLELISM"),
			SendTimeout:              v.GetDuration("JOBS_SEND_TIMEOUT"),
			DefaultTestDurationHours: v.GetInt("JOBS_AB_TEST_DURATION_HOURS"),
			AutomationClaimLease:     v.GetDuration("JOBS_AUTOMATION_CLAIM_LEASE"),
			AutomationRetryDelay:     v.GetDuration("JOBS_AUTOMATION_RETRY_DELAY"),
			ActionCommandMaxAttempts: v.GetInt("JOBS_ACTION_COMMAND_MAX_ATTEMPTS"),
		},
		Tracing: TracingConfig{
			Enabled:             v.GetBool("TRACING_ENABLED"),
			ServiceName:         v.GetString("TRACING_SERVICE_NAME"),
			SamplingProbability: v.GetFloat64("TRACING_SAMPLING_PROBABILITY"),
			TraceExporter:       v.GetString("TRACING_TRACE_EXPORTER"),
			JaegerEndpoint:      v.GetString("TRACING_JAEGER_ENDPOINT"),
			ZipkinEndpoint:      v.GetString("TRACING_ZIPKIN_ENDPOINT"),
			DatadogAgentAddress: v.GetString("TRACING_DATADOG_AGENT_ADDRESS"),
			MetricsExporter:     v.GetString("TRACING_METRICS_EXPORTER"),
		},
		Environment: v.GetString("ENVIRONMENT"),
		APIEndpoint: strings.TrimRight(v.GetString("API_ENDPOINT"), "/"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Version:     v.GetString("VERSION"),
	}

	if config.Jobs.Parallelism < 1 {
		config.Jobs.Parallelism = 1
	}
	if config.Jobs.BatchSize < 1 {
		return nil, fmt.Errorf("JOBS_BATCH_SIZE must be positive, got %d", config.Jobs.BatchSize)
	}

	return config, nil
}

// IsDevelopment returns true if the environment is set to development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CronConfigured reports whether the cron endpoints can authenticate callers.
func (c *Config) CronConfigured() bool {
	return c.Cron.Secret != ""
}

// BillingConfigured reports whether Stripe webhooks can be verified.
func (c *Config) BillingConfigured() bool {
	return c.Billing.StripeWebhookSecret != ""
}

// RedisEnabled reports whether a redis address was supplied.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// SMSConfigured reports whether Twilio credentials are present.
func (c *Config) SMSConfigured() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.FromNumber != ""
}
