package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvMinBufferTime         = "MIN_BUFFER_TIME"
	EnvVehicleLockTTL        = "VEHICLE_LOCK_TTL"
	EnvVehicleLockRetries    = "VEHICLE_LOCK_RETRIES"
	EnvVehicleLockRetryDelay = "VEHICLE_LOCK_RETRY_DELAY"
	EnvLockBackend           = "LOCK_BACKEND"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvKafkaEnabled         = "KAFKA_ENABLED"
	EnvNotificationTopic    = "NOTIFICATION_TOPIC"
	EnvNotificationDLQTopic = "NOTIFICATION_DLQ_TOPIC"
	EnvNotificationGroupID  = "NOTIFICATION_GROUP_ID"
	EnvNotificationTimeout  = "NOTIFICATION_TIMEOUT"

	EnvBookingCodePrefix = "BOOKING_CODE_PREFIX"
	EnvPhoneRegion       = "PHONE_REGION"
)
