package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "tripmarket"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultMemcachedAddr     = "localhost:11211"
	DefaultCategoryCacheTTL  = 10 * time.Minute
	DefaultCategoryCacheSize = 1000

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultCORSAllowedOrigins = "*"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout    = 30 * time.Second
	DefaultIdempotencyTTL    = 24 * time.Hour
	DefaultSharedIdempotency = false
	DefaultMaxRequestSize    = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultKafkaEnabled          = true
	DefaultBookingEventsTopic    = "bookings.events"
	DefaultBookingEventsDLQTopic = "bookings.events.dlq"
	DefaultNotifierGroupID       = "tripmarket-notifier"

	DefaultBookingCancellationWindow = 48 * time.Hour
	DefaultReminderLookahead         = 24 * time.Hour
	DefaultReminderInterval          = 15 * time.Minute

	DefaultPaginationLimit = 100
	MinPaginationLimit     = 10
)
