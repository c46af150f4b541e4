package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"buscharter/internal/notifier"
	"buscharter/pkg/config"
	"buscharter/pkg/kafka"
	kafka_config "buscharter/pkg/kafka/config"
	kafka_middleware "buscharter/pkg/kafka/middleware"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.NotificationTopic,
		cfg.NotificationGroupID,
		cfg.NotificationDLQTopic,
		notifier.Handler(notifier.NewLogSink(cfg.Log)),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(metrics.ConsumerMiddleware())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting notification consumer", "topic", cfg.NotificationTopic, "group_id", cfg.NotificationGroupID)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Notification consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	cfg.Log.Info("Notification consumer stopped", metrics.Snapshot().LogArgs()...)
}
