package kafka

import (
	"context"
	"errors"
	"sync"
	kafka_config "tripmarket/pkg/kafka/config"
	"tripmarket/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// Producer publishes JSON messages to one topic, diverting messages that
// cannot be written to an optional dead letter topic.
type Producer struct {
	writer     *kafka.Writer
	dlq        *deadLetter
	topic      string
	middleware []Middleware
	closed     bool
	mu         sync.RWMutex
}

func NewProducer(cfg *kafka_config.Config, topic string, dlqTopic string, log *logger.Logger) (*Producer, error) {
	if err := checkEndpoint(cfg, topic); err != nil {
		return nil, err
	}

	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: requiredAcksFor(cfg.ProducerRequireAcks),
			Compression:  compressionFor(cfg.ProducerCompression),
			MaxAttempts:  cfg.ProducerMaxAttempts,
			BatchTimeout: cfg.ProducerBatchTimeout,
			Async:        cfg.ProducerAsync,
			ErrorLogger:  errorLogger(log, topic),
		},
		dlq:   newDeadLetter(cfg.Brokers, dlqTopic, topic, "", log),
		topic: topic,
	}, nil
}

func compressionFor(name string) compress.Compression {
	codecs := map[string]compress.Compression{
		"none": compress.None,
		"gzip": compress.Gzip,
		"lz4":  compress.Lz4,
		"zstd": compress.Zstd,
	}
	if c, ok := codecs[name]; ok {
		return c
	}
	return compress.Snappy
}

func requiredAcksFor(acks int) kafka.RequiredAcks {
	switch acks {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	}
	return kafka.RequireAll
}

func (p *Producer) Use(mw Middleware) {
	p.mu.Lock()
	p.middleware = append(p.middleware, mw)
	p.mu.Unlock()
}

func (p *Producer) Topic() string { return p.topic }

// Publish stamps the message with the producer topic and runs it through
// the middleware chain before writing.
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	closed, chain := p.closed, p.middleware
	p.mu.RUnlock()

	switch {
	case closed:
		return ErrProducerClosed
	case msg.Key == "":
		return ErrEmptyKey
	case len(msg.Value) == 0:
		return ErrEmptyValue
	}

	msg.Topic = p.topic
	return wrap(p.write, chain)(ctx, msg)
}

func (p *Producer) write(ctx context.Context, msg Message) error {
	if err := p.writer.WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		return p.dlq.divert(ctx, msg, err)
	}
	return nil
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return errors.Join(p.writer.Close(), p.dlq.Close())
}

func (p *Producer) Stats() kafka.WriterStats {
	return p.writer.Stats()
}
