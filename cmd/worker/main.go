package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/arunvm123/carrental/booking"
	"github.com/arunvm123/carrental/cache"
	"github.com/arunvm123/carrental/cache/redis"
	"github.com/arunvm123/carrental/config"
	"github.com/arunvm123/carrental/logging"
	"github.com/arunvm123/carrental/repository"
	"github.com/arunvm123/carrental/repository/firestore"
	"github.com/arunvm123/carrental/repository/postgres"
	"github.com/arunvm123/carrental/service"
	kafkaservice "github.com/arunvm123/carrental/service/kafka"
	"github.com/arunvm123/carrental/worker"
)

func main() {
	// Load configuration (fallback to env variables if config file not found)
	cfg, err := config.Initialise("config.yaml", false)
	if err != nil {
		logrus.WithError(err).Warn("config file not found or invalid, using environment variables")
		cfg, err = config.Initialise("", true)
		if err != nil {
			logrus.WithError(err).Fatal("failed to load configuration")
		}
	}

	log, err := logging.New(cfg.Log, "payment-worker")
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure logging")
	}

	// Graceful shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal, stopping worker")
		cancel()
	}()

	var store repository.Store
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		store, err = postgres.NewStore(&cfg.Database)
	case config.DriverFirestore:
		store, err = firestore.NewStore(ctx, &cfg.Firestore)
	default:
		log.WithField("driver", cfg.Store.Driver).Fatal("payment worker needs a shared store")
	}
	if err != nil {
		log.WithError(err).Fatal("failed to initialize store")
	}
	defer store.Close()

	redisCache, err := redis.NewRedisCacheRepository(ctx, cfg.Redis.GetRedisURL(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize cache")
	}
	defer redisCache.Close()

	// Kafka writer for notifications
	notificationWriter := kafkaservice.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
	defer notificationWriter.Close()

	manager := booking.NewManager(store, store,
		booking.WithLogger(log),
		booking.WithHoldTTL(cfg.Booking.HoldTTL()),
		booking.WithTaxRate(cfg.Booking.TaxRate),
		booking.WithNotifier(service.Notifiers{
			cache.NewStatusNotifier(redisCache, time.Duration(cfg.Redis.StatusTTL)*time.Second),
			kafkaservice.NewNotifier(notificationWriter),
		}))

	// Setup Kafka consumer; offsets are committed once every earlier event is applied
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.PaymentTopic,
		GroupID: cfg.Kafka.ConsumerGroup,
	})
	defer consumer.Close()

	processor := worker.NewPaymentProcessor(consumer, booking.NewReconciler(manager), redisCache, log, worker.Config{
		Workers:         cfg.Worker.MaxWorkers,
		EventTTL:        time.Duration(cfg.Redis.EventTTL) * time.Hour,
		MetricsInterval: time.Duration(cfg.Worker.MetricsInterval) * time.Second,
		RetryBackoff:    time.Duration(cfg.Worker.RetryBackoffMs) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.Worker.MaxRetryBackoff) * time.Second,
	})

	log.Info("payment worker started")
	if err := processor.Start(ctx); err != nil && !worker.IsShutdown(err) {
		log.WithError(err).Fatal("worker error")
	}

	log.Info("worker stopped gracefully")
}
