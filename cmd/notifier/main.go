package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/arunvm123/carrental/config"
	"github.com/arunvm123/carrental/logging"
	"github.com/arunvm123/carrental/worker"
)

func main() {
	cfg, err := config.Initialise("config.yaml", false)
	if err != nil {
		logrus.WithError(err).Warn("config file not found or invalid, using environment variables")
		cfg, err = config.Initialise("", true)
		if err != nil {
			logrus.WithError(err).Fatal("failed to load configuration")
		}
	}

	log, err := logging.New(cfg.Log, "notification-service")
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure logging")
	}

	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.NotificationTopic,
		GroupID: cfg.Kafka.NotifierGroup,
	})
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal, stopping notifier")
		cancel()
	}()

	processor := worker.NewNotificationProcessor(consumer, worker.LogMailer{Log: log}, log)

	log.Info("notification worker started")
	if err := processor.Start(ctx); err != nil && !worker.IsShutdown(err) {
		log.WithError(err).Fatal("worker error")
	}

	log.WithField("processed", processor.Processed()).Info("notifier stopped gracefully")
}
