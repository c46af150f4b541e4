package repository

import (
	"context"
	"fmt"
	"time"

	mongotx "buscharter/pkg/db/mongo"

	"github.com/go-redis/redis/v8"
)

const redisLockPrefix = "buscharter:vehicle-lock:"

// releaseScript deletes the key only when it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisVehicleLocker struct {
	client *redis.Client
}

func NewRedisVehicleLocker(client *redis.Client) VehicleLocker {
	return &redisVehicleLocker{client: client}
}

func (l *redisVehicleLocker) key(ctx context.Context, vehicleID string) (string, error) {
	scope, err := mongotx.Scoped(ctx, nil)
	if err != nil {
		return "", err
	}
	return redisLockPrefix + lockKey(scope[mongotx.TenantField].(string), vehicleID), nil
}

func (l *redisVehicleLocker) Acquire(ctx context.Context, vehicleID, owner string, ttl time.Duration) (bool, error) {
	key, err := l.key(ctx, vehicleID)
	if err != nil {
		return false, err
	}

	ok, err := l.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire vehicle lock: %w", err)
	}
	return ok, nil
}

func (l *redisVehicleLocker) Release(ctx context.Context, vehicleID, owner string) error {
	key, err := l.key(ctx, vehicleID)
	if err != nil {
		return err
	}

	if err := releaseScript.Run(ctx, l.client, []string{key}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release vehicle lock: %w", err)
	}
	return nil
}
