package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"tripmarket/pkg/client"
	"tripmarket/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MemcachedAddr     string
	CategoryCacheTTL  time.Duration
	CategoryCacheSize int

	Port string

	JWTSecret          string
	CORSAllowedOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	// SharedIdempotency keeps idempotency keys in Redis so replicas see each other's keys.
	SharedIdempotency bool
	MaxRequestSize    int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	KafkaEnabled          bool
	BookingEventsTopic    string
	BookingEventsDLQTopic string
	NotifierGroupID       string

	BookingCancellationWindow time.Duration
	ReminderLookahead         time.Duration
	ReminderInterval          time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	envErr := loadDotEnv()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		MemcachedAddr:     getEnvStr(EnvMemcachedAddr, DefaultMemcachedAddr),
		CategoryCacheTTL:  getEnvDuration(EnvCategoryCacheTTL, DefaultCategoryCacheTTL),
		CategoryCacheSize: getEnvNum(EnvCategoryCacheSize, DefaultCategoryCacheSize),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret:          getEnvStr(EnvJWTSecret, ""),
		CORSAllowedOrigins: splitList(getEnvStr(EnvCORSAllowedOrigins, DefaultCORSAllowedOrigins)),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout:    getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL:    getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		SharedIdempotency: getEnvBool(EnvSharedIdempotency, DefaultSharedIdempotency),
		MaxRequestSize:    getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		KafkaEnabled:          getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		BookingEventsTopic:    getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),
		BookingEventsDLQTopic: getEnvStr(EnvBookingEventsDLQTopic, DefaultBookingEventsDLQTopic),
		NotifierGroupID:       getEnvStr(EnvNotifierGroupID, DefaultNotifierGroupID),

		BookingCancellationWindow: getEnvDuration(EnvBookingCancellationWindow, DefaultBookingCancellationWindow),
		ReminderLookahead:         getEnvDuration(EnvReminderLookahead, DefaultReminderLookahead),
		ReminderInterval:          getEnvDuration(EnvReminderInterval, DefaultReminderInterval),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if envErr != nil {
		cfg.Log.Warn(".env file not found, using process environment", "error", envErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// loadDotEnv looks for a .env in the parent directory first, then the working directory.
func loadDotEnv() error {
	if err := godotenv.Load("../.env"); err != nil {
		return godotenv.Load(".env")
	}
	return nil
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) SetMemcache() {
	cfg.Client.SetMemcache(cfg.Log, cfg.MemcachedAddr)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}
	if cfg.CategoryCacheSize <= 0 {
		errors = append(errors, fmt.Sprintf("CategoryCacheSize must be positive, got: %d", cfg.CategoryCacheSize))
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"CategoryCacheTTL", cfg.CategoryCacheTTL},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"ReminderLookahead", cfg.ReminderLookahead},
		{"ReminderInterval", cfg.ReminderInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}
	if cfg.BookingCancellationWindow < 0 {
		errors = append(errors, fmt.Sprintf("BookingCancellationWindow cannot be negative, got: %s", cfg.BookingCancellationWindow))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.KafkaEnabled && cfg.BookingEventsTopic == "" {
		errors = append(errors, "BookingEventsTopic cannot be empty when Kafka is enabled")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"memcached_addr", cfg.MemcachedAddr,
		"category_cache_ttl", cfg.CategoryCacheTTL,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"cors_allowed_origins", cfg.CORSAllowedOrigins,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"idempotency_shared", cfg.SharedIdempotency,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"kafka_enabled", cfg.KafkaEnabled,
		"booking_events_topic", cfg.BookingEventsTopic,
		"booking_cancellation_window", cfg.BookingCancellationWindow,
		"reminder_lookahead", cfg.ReminderLookahead,
		"reminder_interval", cfg.ReminderInterval,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = MinPaginationLimit
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
