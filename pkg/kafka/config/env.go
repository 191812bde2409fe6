package kafka_config

import "time"

const envPrefix = "KAFKA_"

// Environment keys. Producer settings apply to the bookings and reminders
// services, consumer settings to the notifier.
const (
	EnvBrokers          = envPrefix + "BROKERS"
	EnvEnableMiddleware = envPrefix + "ENABLE_MIDDLEWARE"

	EnvProducerMaxAttempts  = envPrefix + "PRODUCER_MAX_ATTEMPTS"
	EnvProducerBatchTimeout = envPrefix + "PRODUCER_BATCH_TIMEOUT"
	EnvProducerRequireAcks  = envPrefix + "PRODUCER_REQUIRE_ACKS"
	EnvProducerCompression  = envPrefix + "PRODUCER_COMPRESSION"
	EnvProducerAsync        = envPrefix + "PRODUCER_ASYNC"

	EnvConsumerStartOffset       = envPrefix + "CONSUMER_START_OFFSET"
	EnvConsumerMinBytes          = envPrefix + "CONSUMER_MIN_BYTES"
	EnvConsumerMaxBytes          = envPrefix + "CONSUMER_MAX_BYTES"
	EnvConsumerMaxWait           = envPrefix + "CONSUMER_MAX_WAIT"
	EnvConsumerCommitInterval    = envPrefix + "CONSUMER_COMMIT_INTERVAL"
	EnvConsumerHeartbeatInterval = envPrefix + "CONSUMER_HEARTBEAT_INTERVAL"
	EnvConsumerSessionTimeout    = envPrefix + "CONSUMER_SESSION_TIMEOUT"
	EnvConsumerRebalanceTimeout  = envPrefix + "CONSUMER_REBALANCE_TIMEOUT"
	EnvConsumerMaxRetries        = envPrefix + "CONSUMER_MAX_RETRIES"
)

const (
	DefaultBrokers          = "localhost:9092"
	DefaultEnableMiddleware = true

	// Booking events are low volume and must not be lost, so batches are
	// flushed quickly and every in-sync replica acknowledges.
	DefaultProducerMaxAttempts  = 5
	DefaultProducerBatchTimeout = 5 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false

	// A new notifier group starts from the oldest retained event.
	DefaultConsumerStartOffset       = -2
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 1 << 20
	DefaultConsumerMaxWait           = 250 * time.Millisecond
	DefaultConsumerCommitInterval    = time.Second
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 15 * time.Second
	DefaultConsumerRebalanceTimeout  = 30 * time.Second
	DefaultConsumerMaxRetries        = 3
)
