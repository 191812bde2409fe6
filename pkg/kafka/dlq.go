package kafka

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"
	kafka_config "tripmarket/pkg/kafka/config"
	"tripmarket/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Middleware wraps a MessageHandler on either side of the broker.
type Middleware func(ctx context.Context, msg Message, next MessageHandler) error

type (
	ProducerMiddleware = Middleware
	ConsumerMiddleware = Middleware
)

// wrap applies chain so that chain[0] runs first.
func wrap(handler MessageHandler, chain []Middleware) MessageHandler {
	for i := len(chain) - 1; i >= 0; i-- {
		mw, next := chain[i], handler
		handler = func(ctx context.Context, msg Message) error {
			return mw(ctx, msg, next)
		}
	}
	return handler
}

func checkEndpoint(cfg *kafka_config.Config, topic string) error {
	switch {
	case cfg == nil:
		return errors.New("kafka config is required")
	case len(cfg.Brokers) == 0:
		return errors.New("at least one kafka broker is required")
	case topic == "":
		return errors.New("kafka topic is required")
	}
	return nil
}

func errorLogger(log *logger.Logger, topic string) kafka.Logger {
	return kafka.LoggerFunc(func(msg string, args ...any) {
		log.Error("kafka client error", "topic", topic, "detail", fmt.Sprintf(msg, args...))
	})
}

// deadLetter parks messages that could not be written or handled on a
// side topic, stamped with where they came from and why they failed.
type deadLetter struct {
	writer *kafka.Writer
	source string
	group  string
}

// newDeadLetter returns nil when topic is empty, which disables parking.
func newDeadLetter(brokers []string, topic, source, group string, log *logger.Logger) *deadLetter {
	if topic == "" {
		return nil
	}
	return &deadLetter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			MaxAttempts:  3,
			ErrorLogger:  errorLogger(log, topic),
		},
		source: source,
		group:  group,
	}
}

// divert parks msg and returns cause, joined with the parking failure if
// the dead letter write failed too.
func (d *deadLetter) divert(ctx context.Context, msg Message, cause error) error {
	if d == nil {
		return cause
	}

	now := time.Now()
	headers := maps.Clone(msg.Headers)
	if headers == nil {
		headers = make(map[string]string, 4)
	}
	headers[HeaderOriginalTopic] = d.source
	headers[HeaderDLQError] = cause.Error()
	headers[HeaderDLQTimestamp] = now.UTC().Format(time.RFC3339)
	if d.group != "" {
		headers[HeaderDLQGroup] = d.group
	}
	msg.Headers, msg.Timestamp = headers, now

	if err := d.writer.WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		return errors.Join(cause, fmt.Errorf("dead letter write failed: %w", err))
	}
	return cause
}

func (d *deadLetter) Close() error {
	if d == nil {
		return nil
	}
	return d.writer.Close()
}

func toKafkaMessage(msg Message) kafka.Message {
	out := kafka.Message{Key: []byte(msg.Key), Value: msg.Value, Time: msg.Timestamp}
	for k, v := range msg.Headers {
		out.Headers = append(out.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

func fromKafkaMessage(km kafka.Message) Message {
	headers := make(map[string]string, len(km.Headers))
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Key:       string(km.Key),
		Value:     km.Value,
		Headers:   headers,
		Topic:     km.Topic,
		Partition: km.Partition,
		Offset:    km.Offset,
		Timestamp: km.Time,
	}
}
