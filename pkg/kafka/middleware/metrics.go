package kafka_middleware

import (
	"context"
	"time"
	"tripmarket/pkg/kafka"
	"tripmarket/pkg/metrics"
)

const (
	directionPublish = "publish"
	directionConsume = "consume"
)

func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		observe(directionPublish, start, err)
		return err
	}
}

func MetricsConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		observe(directionConsume, start, err)
		return err
	}
}

func observe(direction string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.KafkaMessages.WithLabelValues(direction, status).Inc()
	metrics.KafkaDuration.WithLabelValues(direction).Observe(time.Since(start).Seconds())
}
