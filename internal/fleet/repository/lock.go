package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buscharter/pkg/config"
	mongotx "buscharter/pkg/db/mongo"
	"buscharter/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// VehicleLocker is an advisory per-vehicle lock held for the duration of one
// assignment attempt. Locks expire after ttl so a crashed holder cannot block
// a vehicle forever.
type VehicleLocker interface {
	Acquire(ctx context.Context, vehicleID, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, vehicleID, owner string) error
}

type mongoVehicleLocker struct {
	cfg        *config.Config
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoVehicleLocker relies on the unique _id for mutual exclusion and a
// TTL index on expires_at for cleanup.
func NewMongoVehicleLocker(cfg *config.Config) VehicleLocker {
	return &mongoVehicleLocker{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(LocksCollection),
		now:        time.Now,
	}
}

func (l *mongoVehicleLocker) Acquire(ctx context.Context, vehicleID, owner string, ttl time.Duration) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, l.cfg.WriteTimeout)
	defer cancel()

	scope, err := mongotx.Scoped(ctx, nil)
	if err != nil {
		return false, err
	}
	id := lockKey(scope[mongotx.TenantField].(string), vehicleID)
	now := l.now().UTC()

	lock := &model.VehicleLock{
		ID:        id,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	_, err = l.collection.InsertOne(ctx, lock)
	if err == nil {
		return true, nil
	}
	if !mongotx.IsDuplicateKey(err) {
		return false, fmt.Errorf("failed to acquire vehicle lock: %w", err)
	}

	// The TTL monitor runs about once a minute, so an expired lock can linger.
	// Take it over in one conditional write.
	res := l.collection.FindOneAndReplace(ctx,
		bson.M{"_id": id, "expires_at": bson.M{"$lt": now}},
		lock,
	)
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to take over expired vehicle lock: %w", err)
	}
	return true, nil
}

func (l *mongoVehicleLocker) Release(ctx context.Context, vehicleID, owner string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, l.cfg.WriteTimeout)
	defer cancel()

	scope, err := mongotx.Scoped(ctx, nil)
	if err != nil {
		return err
	}
	id := lockKey(scope[mongotx.TenantField].(string), vehicleID)

	if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": id, "owner": owner}); err != nil {
		return fmt.Errorf("failed to release vehicle lock: %w", err)
	}
	return nil
}
