package main

import (
	"context"

	"kitchenrent/internal/health"
	"kitchenrent/internal/notifications"
	paymentshandler "kitchenrent/internal/payments/handler"
	"kitchenrent/internal/payments/gateway"
	paymentsrepo "kitchenrent/internal/payments/repository"
	paymentsservice "kitchenrent/internal/payments/service"
	"kitchenrent/internal/reservations/handler"
	"kitchenrent/internal/reservations/repository"
	"kitchenrent/internal/reservations/service"
	"kitchenrent/internal/reservations/validator"
	"kitchenrent/pkg/app"
	"kitchenrent/pkg/cache"
	"kitchenrent/pkg/config"
	"kitchenrent/pkg/contracts"
	"kitchenrent/pkg/kafka"
	kafka_config "kitchenrent/pkg/kafka/config"
	kafkamw "kitchenrent/pkg/kafka/middleware"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Reservations service")

	producer := initProducer(cfg)
	notifier := notifications.NewNotifier(
		notifications.NewKafkaSink(producer, ServiceName),
		notifications.Topics{Customer: cfg.CustomerTopic, Operators: cfg.OperatorTopic},
		notifications.Options{
			PublishTimeout: cfg.EventPublishTimeout,
			Buffer:         cfg.NotificationBuffer,
			Workers:        cfg.NotificationWorkers,
		},
		cfg.Log,
	)

	reservationService := initReservations(cfg, notifier)
	protected := []contracts.Handler{handler.NewReservationHandler(reservationService, cfg.Log)}
	public := []contracts.Handler{initHealth(cfg)}

	if cfg.StripeSecretKey != "" {
		paymentHandler, webhookHandler := initPayments(cfg, reservationService, notifier)
		protected = append(protected, paymentHandler)
		public = append(public, webhookHandler)
	} else {
		cfg.Log.Warn("Stripe is not configured, payment endpoints are disabled")
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(app.Routes{Public: public, Protected: protected})
	serverApp.OnShutdown(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := notifier.Close(ctx); err != nil {
			cfg.Log.Error("Failed to drain notifications", "error", err)
		}
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close kafka producer", "error", err)
		}
	})
	serverApp.Run()
}

func initProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg := kafka_config.Load(cfg.Log)
	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.EventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafkamw.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafkamw.MetricsProducerMiddleware())
	}
	return producer
}

func initReservations(cfg *config.Config, notifier service.EventNotifier) service.ReservationService {
	reservationService := service.NewReservationService(
		repository.NewMongoReservationRepository(cfg),
		repository.NewReservationLockRepository(cfg),
		repository.NewMongoEquipmentRepository(cfg),
		validator.NewReservationValidator(cfg.Log),
		notifier,
		cfg,
	)

	cfg.Log.Info("Reservation service initialized", "database", cfg.MongoDatabaseName)
	return reservationService
}

func initPayments(
	cfg *config.Config,
	reservations service.ReservationService,
	notifier paymentsservice.EventNotifier,
) (*paymentshandler.PaymentHandler, *paymentshandler.WebhookHandler) {
	repo := paymentsrepo.NewMongoPaymentRepository(cfg)
	gw := gateway.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.Log)

	paymentService := paymentsservice.NewPaymentService(repo, reservations, gw, notifier, cfg)
	reconciler := paymentsservice.NewReconciler(repo, reservations, newDeduplicator(cfg), notifier, cfg)

	cfg.Log.Info("Payment service initialized")
	return paymentshandler.NewPaymentHandler(paymentService, cfg.Log),
		paymentshandler.NewWebhookHandler(gw, reconciler, cfg.Log)
}

func newDeduplicator(cfg *config.Config) cache.Deduplicator {
	if cfg.Client.Redis != nil {
		return cache.NewRedisDeduplicator(cfg.Client.Redis, "kitchenrent:")
	}
	cfg.Log.Warn("Payment event ledger kept in memory, dedupe is per replica")
	return cache.NewMemoryDeduplicator()
}

func initHealth(cfg *config.Config) *health.HealthHandler {
	h := health.NewHealthHandler(cfg.Log).Require("mongo", func(ctx context.Context) error {
		return cfg.Client.Mongo.Ping(ctx, nil)
	})
	if cfg.Client.Redis != nil {
		h.Observe("redis", func(ctx context.Context) error {
			return cfg.Client.Redis.Ping(ctx).Err()
		})
	}
	return h
}
