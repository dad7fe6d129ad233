package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chadland/notification-service/configs"
	apihttp "github.com/chadland/notification-service/internal/api/http"
	"github.com/chadland/notification-service/internal/app/bus"
	"github.com/chadland/notification-service/internal/domain"
	deliveryport "github.com/chadland/notification-service/internal/domain/port/delivery"
	"github.com/chadland/notification-service/internal/domain/port/repository"
	kafkabroker "github.com/chadland/notification-service/internal/infrastructure/broker"
	"github.com/chadland/notification-service/internal/infrastructure/delivery/noop"
	"github.com/chadland/notification-service/internal/infrastructure/delivery/smtp"
	"github.com/chadland/notification-service/internal/infrastructure/persistence/memory"
	"github.com/chadland/notification-service/internal/infrastructure/persistence/postgres"
	"github.com/chadland/notification-service/internal/observability/metrics"
	"github.com/chadland/notification-service/internal/observability/tracing"
	"github.com/chadland/notification-service/internal/usecases/integration"
	"github.com/chadland/notification-service/internal/usecases/preferences"
	"github.com/chadland/notification-service/internal/usecases/publishevents"
	"github.com/chadland/notification-service/internal/usecases/queueconsumer"
	"github.com/chadland/notification-service/internal/usecases/sendnotification"
	"github.com/chadland/notification-service/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	if err := logger.InitializeLogger(false); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("Error syncing logger: %v", err)
		}
	}()

	logger.L().Info("Starting notification service...")

	cfg, err := configs.NewConfig(".")
	if err != nil {
		logger.L().Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.L().Info("Configuration loaded",
		zap.String("storageDriver", cfg.StorageDriver),
		zap.Strings("kafkaBrokers", cfg.KafkaBrokers),
		zap.String("kafkaCommandTopic", cfg.KafkaCommandTopic),
		zap.String("httpServerAddress", cfg.HTTPServerAddress),
		zap.String("metricsServerAddress", cfg.MetricsServerAddress),
	)

	tracerShutdown, err := tracing.InitTracer(cfg)
	if err != nil {
		logger.L().Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.L().Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// --- Metrics server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.MetricsHandler())
	metricsServer := &http.Server{
		Addr:    cfg.MetricsServerAddress,
		Handler: metricsMux,
	}
	go func() {
		logger.L().Info("Starting metrics server", zap.String("address", cfg.MetricsServerAddress))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.L().Error("Metrics server ListenAndServe failed", zap.Error(err))
		}
	}()

	// --- Storage ---
	uowFactory, closeStorage, err := buildStorage(cfg)
	if err != nil {
		logger.L().Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer closeStorage()

	// --- Email delivery ---
	emailProvider := buildEmailProvider(cfg)

	// --- Event publisher ---
	eventPublisher, err := kafkabroker.NewKafkaEventPublisher(cfg.KafkaBrokers)
	if err != nil {
		logger.L().Fatal("Failed to initialize event publisher", zap.Error(err))
	}
	defer func() {
		if err := eventPublisher.Close(); err != nil {
			logger.L().Error("Error closing event publisher", zap.Error(err))
		}
	}()

	// --- Handler table and message bus ---
	messageBus, err := buildMessageBus(cfg, uowFactory, emailProvider, eventPublisher)
	if err != nil {
		logger.L().Fatal("Failed to build message bus", zap.Error(err))
	}

	// --- Kafka consumer ---
	messageBroker, err := kafkabroker.NewKafkaBroker(kafkabroker.Config{Brokers: cfg.KafkaBrokers})
	if err != nil {
		logger.L().Fatal("Failed to initialize Kafka broker", zap.Error(err))
	}
	defer func() {
		if err := messageBroker.Close(); err != nil {
			logger.L().Error("Error closing kafka broker", zap.Error(err))
		}
	}()

	consumer := queueconsumer.NewQueueConsumerUseCase(
		messageBroker,
		messageBus,
		cfg.ConsumerMaxRedeliveries,
		time.Duration(cfg.RedeliveryBackoffMs)*time.Millisecond,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Execute(ctx); err != nil {
			logger.L().Error("Kafka consumer exited with error", zap.Error(err))
		} else {
			logger.L().Info("Kafka consumer exited cleanly.")
		}
	}()

	// --- HTTP API ---
	router := apihttp.NewRouter(cfg.OtelServiceName, apihttp.NewHandlers(messageBus, uowFactory))
	httpServer := &http.Server{
		Addr:    cfg.HTTPServerAddress,
		Handler: router,
	}
	go func() {
		logger.L().Info("Starting HTTP server", zap.String("address", cfg.HTTPServerAddress))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.L().Error("HTTP server ListenAndServe failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.L().Info("Received signal, shutting down gracefully...", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("Metrics server shutdown error", zap.Error(err))
	}

	cancel()
	logger.L().Info("Waiting for Kafka consumer to stop...")
	<-consumerDone

	logger.L().Info("Notification service shut down complete.")
}

// buildStorage selects the unit-of-work factory by STORAGE_DRIVER.
func buildStorage(cfg *configs.Config) (repository.UnitOfWorkFactory, func(), error) {
	switch cfg.StorageDriver {
	case "memory":
		logger.L().Warn("Using in-memory storage; all state is lost on restart.")
		return memory.NewFactory(memory.NewStore()), func() {}, nil
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.L().Info("Postgres storage initialized and migrated.")
		return postgres.NewFactory(pool), pool.Close, nil
	default:
		logger.L().Fatal("Unknown STORAGE_DRIVER", zap.String("storageDriver", cfg.StorageDriver))
		return nil, nil, nil
	}
}

// buildEmailProvider selects the delivery adapter by EMAIL_DRIVER.
func buildEmailProvider(cfg *configs.Config) deliveryport.EmailProvider {
	if cfg.EmailDriver == "log" {
		logger.L().Warn("Using log email driver; no real emails will be sent.")
		return noop.NewProvider()
	}
	return smtp.NewProvider(configs.GetEmailConf())
}

// buildMessageBus registers every command handler and event subscription,
// validates the table against the closed command set, and wires the bus.
func buildMessageBus(
	cfg *configs.Config,
	uowFactory repository.UnitOfWorkFactory,
	emailProvider deliveryport.EmailProvider,
	eventPublisher *kafkabroker.KafkaEventPublisher,
) (*bus.MessageBus, error) {
	sendHandler := sendnotification.NewHandler(
		emailProvider,
		cfg.MaxRetries,
		time.Duration(cfg.DeliveryBackoffBaseMs)*time.Millisecond,
	)
	prefsHandler := preferences.NewHandler()
	integrationHandler := integration.NewHandler(
		sendHandler.HandleSend,
		prefsHandler.HandleCreate,
		cfg.ServiceDisplayName,
		cfg.VerificationLinkBase,
		cfg.PasswordResetLinkBase,
	)
	publishHandler := publishevents.NewHandler(eventPublisher)

	table := bus.NewHandlerTable()
	if err := table.RegisterCommand(domain.SendNotificationName, sendHandler.HandleSend); err != nil {
		return nil, err
	}
	if err := table.RegisterCommand(domain.RetryNotificationName, sendHandler.HandleRetry); err != nil {
		return nil, err
	}
	if err := table.RegisterCommand(domain.CreateNotificationPreferencesName, prefsHandler.HandleCreate); err != nil {
		return nil, err
	}
	if err := table.RegisterCommand(domain.UpdateNotificationPreferencesName, prefsHandler.HandleUpdate); err != nil {
		return nil, err
	}

	table.Subscribe(domain.UserRegistered{}.EventName(), integrationHandler.HandleUserRegistered)
	table.Subscribe(domain.UserEmailVerificationRequested{}.EventName(), integrationHandler.HandleEmailVerificationRequested)
	table.Subscribe(domain.PasswordResetRequested{}.EventName(), integrationHandler.HandlePasswordResetRequested)
	table.Subscribe(domain.NotificationPreferencesCreated{}.EventName(), integrationHandler.HandlePreferencesCreated)
	table.Subscribe(domain.NotificationPreferencesUpdated{}.EventName(), integrationHandler.HandlePreferencesUpdated)

	// Every outgoing event also fans out to external consumers.
	table.Subscribe(domain.NotificationSent{}.EventName(), publishHandler.Handle)
	table.Subscribe(domain.NotificationFailed{}.EventName(), publishHandler.Handle)
	table.Subscribe(domain.NotificationPreferencesCreated{}.EventName(), publishHandler.Handle)
	table.Subscribe(domain.NotificationPreferencesUpdated{}.EventName(), publishHandler.Handle)

	if err := table.Validate([]string{
		domain.SendNotificationName,
		domain.RetryNotificationName,
		domain.CreateNotificationPreferencesName,
		domain.UpdateNotificationPreferencesName,
	}); err != nil {
		return nil, err
	}

	return bus.NewMessageBus(table, uowFactory), nil
}
