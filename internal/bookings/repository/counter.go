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

// BookingCodeRepository hands out per-tenant sequence numbers for a period
// key such as "BOOK/2025/03".
type BookingCodeRepository interface {
	NextSequence(ctx context.Context, period string) (int64, error)
}

type counterDoc struct {
	ID        string    `bson:"_id"`
	TenantID  string    `bson:"tenant_id"`
	Period    string    `bson:"period"`
	Seq       int64     `bson:"seq"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoBookingCodeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingCodeRepository(cfg *config.Config) BookingCodeRepository {
	return &mongoBookingCodeRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CountersCollection),
	}
}

func (r *mongoBookingCodeRepository) NextSequence(ctx context.Context, period string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	scope, err := mongotx.Scoped(ctx, bson.M{"period": period})
	if err != nil {
		return 0, err
	}
	tenantID := scope[mongotx.TenantField].(string)

	filter := bson.M{"_id": tenantID + "|" + period}
	update := bson.M{
		"$inc":         bson.M{"seq": 1},
		"$set":         bson.M{"updated_at": time.Now().UTC()},
		"$setOnInsert": bson.M{"tenant_id": tenantID, "period": period},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc counterDoc
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return 0, fmt.Errorf("failed to advance booking counter: %w", err)
	}
	return doc.Seq, nil
}
