package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvMemcachedAddr     = "MEMCACHED_ADDR"
	EnvCategoryCacheTTL  = "CATEGORY_CACHE_TTL"
	EnvCategoryCacheSize = "CATEGORY_CACHE_SIZE"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret          = "JWT_SECRET"
	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout    = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL    = "IDEMPOTENCY_TTL"
	EnvSharedIdempotency = "IDEMPOTENCY_SHARED"
	EnvMaxRequestSize    = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvKafkaEnabled          = "KAFKA_ENABLED"
	EnvBookingEventsTopic    = "BOOKING_EVENTS_TOPIC"
	EnvBookingEventsDLQTopic = "BOOKING_EVENTS_DLQ_TOPIC"
	EnvNotifierGroupID       = "NOTIFIER_GROUP_ID"

	EnvBookingCancellationWindow = "BOOKING_CANCELLATION_WINDOW"
	EnvReminderLookahead         = "REMINDER_LOOKAHEAD"
	EnvReminderInterval          = "REMINDER_INTERVAL"
)
