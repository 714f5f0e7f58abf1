package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"kitchenrent/pkg/client"
	"kitchenrent/pkg/logger"

	"github.com/robfig/cron/v3"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	JWTSecret string

	StripeSecretKey     string
	StripeWebhookSecret string
	DefaultCurrency     string

	RateLimitRequests int
	RateLimitBurst    int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Reservation engine policy
	LockTTL              time.Duration
	LockWaitTimeout      time.Duration
	CustomerCancelCutoff time.Duration
	MaxAdvanceBooking    time.Duration
	EventPublishTimeout  time.Duration
	PaymentEventTTL      time.Duration
	PaymentEventLease    time.Duration

	NotificationBuffer  int
	NotificationWorkers int

	CustomerTopic        string
	OperatorTopic        string
	PaymentOutcomeTopic  string
	EventsDLQTopic       string
	PaymentConsumerGroup string

	ReminderCron     string
	OverdueCron      string
	KafkaMetricsCron string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		StripeSecretKey:     getEnvStr(EnvStripeSecretKey, ""),
		StripeWebhookSecret: getEnvStr(EnvStripeWebhookSecret, ""),
		DefaultCurrency:     strings.ToLower(getEnvStr(EnvDefaultCurrency, DefaultCurrency)),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitBurst:    getEnvNum(EnvRateLimitBurst, DefaultRateLimitBurst),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		LockTTL:              getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockWaitTimeout:      getEnvDuration(EnvLockWaitTimeout, DefaultLockWaitTimeout),
		CustomerCancelCutoff: getEnvDuration(EnvCustomerCancelCutoff, DefaultCustomerCancelCutoff),
		MaxAdvanceBooking:    getEnvDuration(EnvMaxAdvanceBooking, DefaultMaxAdvanceBooking),
		EventPublishTimeout:  getEnvDuration(EnvEventPublishTimeout, DefaultEventPublishTimeout),
		PaymentEventTTL:      getEnvDuration(EnvPaymentEventTTL, DefaultPaymentEventTTL),
		PaymentEventLease:    getEnvDuration(EnvPaymentEventLease, DefaultPaymentEventLease),

		NotificationBuffer:  getEnvNum(EnvNotificationBuffer, DefaultNotificationBuffer),
		NotificationWorkers: getEnvNum(EnvNotificationWorkers, DefaultNotificationWorkers),

		CustomerTopic:        getEnvStr(EnvCustomerTopic, DefaultCustomerTopic),
		OperatorTopic:        getEnvStr(EnvOperatorTopic, DefaultOperatorTopic),
		PaymentOutcomeTopic:  getEnvStr(EnvPaymentOutcomeTopic, DefaultPaymentOutcomeTopic),
		EventsDLQTopic:       getEnvStr(EnvEventsDLQTopic, DefaultEventsDLQTopic),
		PaymentConsumerGroup: getEnvStr(EnvPaymentConsumerGroup, DefaultPaymentConsumerGroup),

		ReminderCron:     getEnvStr(EnvReminderCron, DefaultReminderCron),
		OverdueCron:      getEnvStr(EnvOverdueCron, DefaultOverdueCron),
		KafkaMetricsCron: getEnvStr(EnvKafkaMetricsCron, DefaultKafkaMetricsCron),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 16 {
		errors = append(errors, "JWTSecret must be at least 16 characters long")
	}

	if !regexp.MustCompile(`^[a-z]{3}$`).MatchString(cfg.DefaultCurrency) {
		errors = append(errors, fmt.Sprintf("DefaultCurrency must be a three letter ISO code, got: %s", cfg.DefaultCurrency))
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"LockTTL", cfg.LockTTL},
		{"LockWaitTimeout", cfg.LockWaitTimeout},
		{"MaxAdvanceBooking", cfg.MaxAdvanceBooking},
		{"EventPublishTimeout", cfg.EventPublishTimeout},
		{"PaymentEventTTL", cfg.PaymentEventTTL},
		{"PaymentEventLease", cfg.PaymentEventLease},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}
	if cfg.CustomerCancelCutoff < 0 {
		errors = append(errors, fmt.Sprintf("CustomerCancelCutoff cannot be negative, got: %s", cfg.CustomerCancelCutoff))
	}

	if cfg.PaymentEventLease >= cfg.PaymentEventTTL {
		errors = append(errors, fmt.Sprintf("PaymentEventLease (%s) must be shorter than PaymentEventTTL (%s)", cfg.PaymentEventLease, cfg.PaymentEventTTL))
	}
	if cfg.NotificationBuffer <= 0 {
		errors = append(errors, fmt.Sprintf("NotificationBuffer must be positive, got: %d", cfg.NotificationBuffer))
	}
	if cfg.NotificationWorkers <= 0 {
		errors = append(errors, fmt.Sprintf("NotificationWorkers must be positive, got: %d", cfg.NotificationWorkers))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitBurst <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitBurst must be positive, got: %d", cfg.RateLimitBurst))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.CustomerTopic == "" || cfg.OperatorTopic == "" || cfg.PaymentOutcomeTopic == "" {
		errors = append(errors, "notification and payment outcome topics cannot be empty")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"ReminderCron":     cfg.ReminderCron,
		"OverdueCron":      cfg.OverdueCron,
		"KafkaMetricsCron": cfg.KafkaMetricsCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			errors = append(errors, fmt.Sprintf("%s is not a valid cron expression (%s): %v", name, spec, err))
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"stripe_key_set", cfg.StripeSecretKey != "",
		"stripe_webhook_secret_set", cfg.StripeWebhookSecret != "",
		"default_currency", cfg.DefaultCurrency,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_burst", cfg.RateLimitBurst,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"lock_ttl", cfg.LockTTL,
		"lock_wait_timeout", cfg.LockWaitTimeout,
		"customer_cancel_cutoff", cfg.CustomerCancelCutoff,
		"max_advance_booking", cfg.MaxAdvanceBooking,
		"payment_event_lease", cfg.PaymentEventLease,
		"notification_buffer", cfg.NotificationBuffer,
		"notification_workers", cfg.NotificationWorkers,
		"customer_topic", cfg.CustomerTopic,
		"operator_topic", cfg.OperatorTopic,
		"payment_outcome_topic", cfg.PaymentOutcomeTopic,
		"reminder_cron", cfg.ReminderCron,
		"overdue_cron", cfg.OverdueCron,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = MinPaginationLimit
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
