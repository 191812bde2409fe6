package events

import (
	"fmt"
	"tripmarket/pkg/config"
	"tripmarket/pkg/kafka"
	kafka_config "tripmarket/pkg/kafka/config"
	kafkamiddleware "tripmarket/pkg/kafka/middleware"
)

// Connect returns the publisher configured for this process and a function
// that releases it. With Kafka disabled events are only logged.
func Connect(cfg *config.Config, source string) (Publisher, func(), error) {
	if !cfg.KafkaEnabled {
		cfg.Log.Warn("Kafka disabled, booking events will only be logged")
		return NewLogPublisher(cfg.Log), func() {}, nil
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		return nil, nil, err
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic, cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create booking events producer: %w", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafkamiddleware.MetricsProducerMiddleware())
	}

	release := func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close booking events producer", "error", err)
		}
	}
	return NewKafkaPublisher(producer, source, cfg.Log), release, nil
}
