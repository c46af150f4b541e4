package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"buscharter/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const (
	redisIdempotencyPrefix = "idem:"
	redisPending           = "pending"
)

// RedisIdempotencyStore shares idempotency state between API replicas.
// Redis errors degrade to "not seen" so an outage never blocks requests.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl, log: log}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	raw, err := s.client.Get(ctx, redisIdempotencyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("Idempotency lookup failed", "error", err)
		}
		return nil, false
	}
	if string(raw) == redisPending {
		return nil, false
	}

	var cached CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.log.Warn("Discarding unreadable idempotency entry", "error", err)
		return nil, false
	}
	return &cached, true
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) bool {
	ok, err := s.client.SetNX(ctx, redisIdempotencyPrefix+key, redisPending, s.ttl).Result()
	if err != nil {
		s.log.Warn("Idempotency reservation failed", "error", err)
		return true
	}
	return ok
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	raw, err := json.Marshal(response)
	if err != nil {
		s.log.Error("Failed to encode idempotent response", "error", err)
		return
	}
	if err := s.client.Set(ctx, redisIdempotencyPrefix+key, raw, s.ttl).Err(); err != nil {
		s.log.Warn("Failed to store idempotent response", "error", err)
	}
}

// releaseScript deletes the key only while it still holds the reservation.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) {
	if err := releaseScript.Run(ctx, s.client, []string{redisIdempotencyPrefix + key}, redisPending).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn("Failed to release idempotency key", "error", err)
	}
}

func (s *RedisIdempotencyStore) Stop() {}
