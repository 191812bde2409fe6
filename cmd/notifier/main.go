package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"tripmarket/internal/notifications"
	"tripmarket/pkg/config"
	"tripmarket/pkg/kafka"
	kafka_config "tripmarket/pkg/kafka/config"
	kafkamiddleware "tripmarket/pkg/kafka/middleware"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	dispatcher := notifications.NewDispatcher(notifications.NewLogSender(cfg.Log), cfg.IdempotencyTTL, cfg.Log)

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.BookingEventsTopic, cfg.NotifierGroupID, cfg.BookingEventsDLQTopic, dispatcher.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create booking events consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafkamiddleware.MetricsConsumerMiddleware())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting notifier", "topic", cfg.BookingEventsTopic, "group_id", cfg.NotifierGroupID)
	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Notifier stopped")
}
