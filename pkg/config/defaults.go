package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "buscharter"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRateLimitRequests = 120
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultMinBufferTime         = 4 * time.Hour
	DefaultVehicleLockTTL        = 10 * time.Second
	DefaultVehicleLockRetries    = 5
	DefaultVehicleLockRetryDelay = 100 * time.Millisecond
	DefaultLockBackend           = LockBackendMongo

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultKafkaEnabled         = false
	DefaultNotificationTopic    = "charter.events"
	DefaultNotificationDLQTopic = "charter.events.dlq"
	DefaultNotificationGroupID  = "charter-notifier"
	DefaultNotificationTimeout  = 5 * time.Second

	DefaultBookingCodePrefix = "BOOK"
	DefaultPhoneRegion       = "ID"

	DefaultPaginationLimit = 100
)

const (
	LockBackendMongo = "mongo"
	LockBackendRedis = "redis"
)
