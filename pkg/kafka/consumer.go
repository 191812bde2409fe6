package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
	kafka_config "tripmarket/pkg/kafka/config"
	"tripmarket/pkg/logger"

	"github.com/segmentio/kafka-go"
)

const (
	fetchBackoff = time.Second
	retryBackoff = 200 * time.Millisecond
)

// Consumer reads one topic as part of a consumer group. Each message is
// committed after it was handled, retried, or parked on the dead letter topic.
type Consumer struct {
	reader     *kafka.Reader
	dlq        *deadLetter
	topic      string
	maxRetries int
	handler    MessageHandler
	middleware []Middleware
	log        *logger.Logger
	closed     bool
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

func NewConsumer(cfg *kafka_config.Config, topic, groupID, dlqTopic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if err := checkEndpoint(cfg, topic); err != nil {
		return nil, err
	}
	if groupID == "" || handler == nil {
		return nil, errors.New("kafka consumer needs a group ID and a handler")
	}

	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			Topic:             topic,
			GroupID:           groupID,
			MinBytes:          cfg.ConsumerMinBytes,
			MaxBytes:          cfg.ConsumerMaxBytes,
			MaxWait:           cfg.ConsumerMaxWait,
			CommitInterval:    cfg.ConsumerCommitInterval,
			HeartbeatInterval: cfg.ConsumerHeartbeatInterval,
			SessionTimeout:    cfg.ConsumerSessionTimeout,
			RebalanceTimeout:  cfg.ConsumerRebalanceTimeout,
			StartOffset:       cfg.ConsumerStartOffset,
			ErrorLogger:       errorLogger(log, topic),
		}),
		dlq:        newDeadLetter(cfg.Brokers, dlqTopic, topic, groupID, log),
		topic:      topic,
		maxRetries: cfg.ConsumerMaxRetries,
		handler:    handler,
		log:        log,
	}, nil
}

func (c *Consumer) Use(mw Middleware) {
	c.mu.Lock()
	c.middleware = append(c.middleware, mw)
	c.mu.Unlock()
}

// Start blocks until ctx is cancelled or the reader is closed.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	for {
		km, err := c.reader.FetchMessage(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, io.EOF):
			return ErrConsumerClosed
		default:
			c.log.Error("Failed to fetch kafka message", "topic", c.topic, "error", err)
			if !sleep(ctx, fetchBackoff) {
				return ctx.Err()
			}
			continue
		}

		msg := fromKafkaMessage(km)
		if err := c.process(ctx, msg); err != nil {
			c.log.Warn("Kafka message dropped", "topic", c.topic, "offset", msg.Offset, "event_id", msg.GetEventID(), "error", err)
		}
		if err := c.reader.CommitMessages(ctx, km); err != nil {
			c.log.Error("Failed to commit kafka offset", "topic", c.topic, "offset", km.Offset, "error", err)
		}
	}
}

// process retries transient failures in place with a linear backoff, then
// parks the message on the dead letter topic.
func (c *Consumer) process(ctx context.Context, msg Message) error {
	c.mu.RLock()
	handle := wrap(c.handler, c.middleware)
	c.mu.RUnlock()

	for {
		err := handle(ctx, msg)
		if err == nil {
			return nil
		}

		attempt := msg.GetRetryCount()
		if !ShouldRetry(err, attempt, c.maxRetries) {
			return c.dlq.divert(ctx, msg, err)
		}

		msg.IncrementRetryCount()
		c.log.Debug("Retrying kafka message", "topic", c.topic, "attempt", attempt+1, "error", err)
		if !sleep(ctx, time.Duration(attempt+1)*retryBackoff) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Close waits for Start to return. Cancel its context first.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.reader.Close()
	c.wg.Wait()
	return errors.Join(err, c.dlq.Close())
}

func (c *Consumer) Stats() kafka.ReaderStats {
	return c.reader.Stats()
}
