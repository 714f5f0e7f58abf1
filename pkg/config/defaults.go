package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "kitchenrent"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultCurrency = "usd"

	DefaultRateLimitRequests = 60
	DefaultRateLimitBurst    = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLockTTL              = 10 * time.Second
	DefaultLockWaitTimeout      = 3 * time.Second
	DefaultCustomerCancelCutoff = 24 * time.Hour
	DefaultMaxAdvanceBooking    = 365 * 24 * time.Hour
	DefaultEventPublishTimeout  = 2 * time.Second
	DefaultPaymentEventTTL      = 72 * time.Hour
	DefaultPaymentEventLease    = 2 * time.Minute
	DefaultNotificationBuffer   = 256
	DefaultNotificationWorkers  = 4

	DefaultCustomerTopic        = "kitchenrent.notifications.customer"
	DefaultOperatorTopic        = "kitchenrent.notifications.operators"
	DefaultPaymentOutcomeTopic  = "kitchenrent.payments.outcomes"
	DefaultEventsDLQTopic       = "kitchenrent.dlq"
	DefaultPaymentConsumerGroup = "kitchenrent-payment-reconciler"

	// robfig/cron expressions with a leading seconds field
	DefaultReminderCron     = "0 0 7 * * *"
	DefaultOverdueCron      = "0 30 * * * *"
	DefaultKafkaMetricsCron = "0 */5 * * * *"

	DefaultPaginationLimit = 100
	MinPaginationLimit     = 10
)
