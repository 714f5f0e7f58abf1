package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"kitchenrent/internal/notifications"
	"kitchenrent/internal/payments/consumer"
	paymentsrepo "kitchenrent/internal/payments/repository"
	paymentsservice "kitchenrent/internal/payments/service"
	"kitchenrent/internal/reservations/repository"
	"kitchenrent/internal/reservations/service"
	"kitchenrent/internal/reservations/validator"
	"kitchenrent/internal/worker"
	"kitchenrent/pkg/cache"
	"kitchenrent/pkg/config"
	"kitchenrent/pkg/kafka"
	kafka_config "kitchenrent/pkg/kafka/config"
	kafkamw "kitchenrent/pkg/kafka/middleware"
)

const ServiceName = "reservations-worker"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Reservations worker")

	kafkaCfg := kafka_config.Load(cfg.Log)
	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.EventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create kafka producer", "error", err)
	}
	defer producer.Close()

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

	reservationRepo := repository.NewMongoReservationRepository(cfg)
	reservations := service.NewReservationService(
		reservationRepo,
		repository.NewReservationLockRepository(cfg),
		repository.NewMongoEquipmentRepository(cfg),
		validator.NewReservationValidator(cfg.Log),
		notifier,
		cfg,
	)
	dedupe := newDeduplicator(cfg)

	reconciler := paymentsservice.NewReconciler(
		paymentsrepo.NewMongoPaymentRepository(cfg),
		reservations,
		dedupe,
		notifier,
		cfg,
	)
	outcomes, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.Log,
		cfg.PaymentOutcomeTopic,
		cfg.PaymentConsumerGroup,
		cfg.EventsDLQTopic,
		consumer.NewOutcomeHandler(reconciler, cfg.Log),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create payment outcome consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafkamw.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafkamw.MetricsProducerMiddleware())
		outcomes.Use(kafkamw.LoggingConsumerMiddleware(cfg.Log))
		outcomes.Use(kafkamw.MetricsConsumerMiddleware())
	}

	scheduler, err := worker.NewScheduler(cfg, worker.NewJobs(reservationRepo, notifier, dedupe, cfg.Log))
	if err != nil {
		cfg.Log.Fatal("Failed to configure worker jobs", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumerDone := make(chan error, 1)
	go func() {
		cfg.Log.Info("Consuming payment outcomes", "topic", cfg.PaymentOutcomeTopic, "group", cfg.PaymentConsumerGroup)
		consumerDone <- outcomes.Start(ctx)
	}()
	scheduler.Start()

	select {
	case <-ctx.Done():
		cfg.Log.Info("Shutdown signal received")
	case err := <-consumerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Payment outcome consumer stopped", "error", err)
		}
	}

	stop()
	scheduler.Stop()
	if err := outcomes.Close(); err != nil {
		cfg.Log.Error("Failed to close payment outcome consumer", "error", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := notifier.Close(drainCtx); err != nil {
		cfg.Log.Error("Failed to drain notifications", "error", err)
	}
	cfg.Log.Info("Worker stopped")
}

func newDeduplicator(cfg *config.Config) cache.Deduplicator {
	if cfg.Client.Redis != nil {
		return cache.NewRedisDeduplicator(cfg.Client.Redis, "kitchenrent:")
	}
	cfg.Log.Warn("Dedupe ledger kept in memory, alerts and payment events dedupe per replica")
	return cache.NewMemoryDeduplicator()
}
