package repository

import (
	"context"
	"fmt"
	"time"

	"buscharter/pkg/config"
	mongotx "buscharter/pkg/db/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FenceRepository bumps a per-vehicle counter inside the assignment
// transaction. Two transactions touching the same vehicle then write the same
// document and MongoDB aborts one of them with a write conflict.
type FenceRepository interface {
	Touch(ctx context.Context, vehicleID string) error
}

type mongoFenceRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoFenceRepository(cfg *config.Config) FenceRepository {
	return &mongoFenceRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(FencesCollection),
	}
}

func (r *mongoFenceRepository) Touch(ctx context.Context, vehicleID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	scope, err := mongotx.Scoped(ctx, bson.M{"vehicle_id": vehicleID})
	if err != nil {
		return err
	}
	tenantID := scope[mongotx.TenantField].(string)

	update := bson.M{
		"$inc":         bson.M{"seq": 1},
		"$set":         bson.M{"touched_at": time.Now().UTC()},
		"$setOnInsert": bson.M{"tenant_id": tenantID, "vehicle_id": vehicleID},
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": lockKey(tenantID, vehicleID)}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to touch vehicle fence: %w", err)
	}
	return nil
}

func lockKey(tenantID, vehicleID string) string {
	return tenantID + "|" + vehicleID
}
