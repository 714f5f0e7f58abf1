package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret = "JWT_SECRET"

	EnvStripeSecretKey     = "STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "STRIPE_WEBHOOK_SECRET"
	EnvDefaultCurrency     = "DEFAULT_CURRENCY"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitBurst    = "RATE_LIMIT_BURST"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLockTTL              = "LOCK_TTL"
	EnvLockWaitTimeout      = "LOCK_WAIT_TIMEOUT"
	EnvCustomerCancelCutoff = "CUSTOMER_CANCEL_CUTOFF"
	EnvMaxAdvanceBooking    = "MAX_ADVANCE_BOOKING"
	EnvEventPublishTimeout  = "EVENT_PUBLISH_TIMEOUT"
	EnvPaymentEventTTL      = "PAYMENT_EVENT_TTL"
	EnvPaymentEventLease    = "PAYMENT_EVENT_LEASE"
	EnvNotificationBuffer   = "NOTIFICATION_BUFFER"
	EnvNotificationWorkers  = "NOTIFICATION_WORKERS"

	EnvCustomerTopic        = "NOTIFICATIONS_CUSTOMER_TOPIC"
	EnvOperatorTopic        = "NOTIFICATIONS_OPERATOR_TOPIC"
	EnvPaymentOutcomeTopic  = "PAYMENT_OUTCOMES_TOPIC"
	EnvEventsDLQTopic       = "EVENTS_DLQ_TOPIC"
	EnvPaymentConsumerGroup = "PAYMENT_CONSUMER_GROUP"

	EnvReminderCron     = "REMINDER_CRON"
	EnvOverdueCron      = "OVERDUE_CRON"
	EnvKafkaMetricsCron = "KAFKA_METRICS_CRON"
)
