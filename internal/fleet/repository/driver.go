package repository

import (
	"context"
	"errors"
	"fmt"

	fleeterrors "buscharter/internal/fleet/errors"
	"buscharter/pkg/config"
	mongotx "buscharter/pkg/db/mongo"
	"buscharter/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DriverRepository interface {
	Create(ctx context.Context, driver *model.Driver) error
	FindByID(ctx context.Context, id string) (*model.Driver, error)
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, activeOnly bool) ([]*model.Driver, error)
	Active(ctx context.Context) ([]*model.Driver, error)
}

type mongoDriverRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoDriverRepository(cfg *config.Config) DriverRepository {
	return &mongoDriverRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(DriversCollection),
	}
}

func (r *mongoDriverRepository) Create(ctx context.Context, driver *model.Driver) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := mongotx.Scoped(ctx, nil); err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, driver); err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	return nil
}

func (r *mongoDriverRepository) FindByID(ctx context.Context, id string) (*model.Driver, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := checkID(id); err != nil {
		return nil, err
	}
	filter, err := mongotx.Scoped(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}

	var driver model.Driver
	if err := r.collection.FindOne(ctx, filter).Decode(&driver); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fleeterrors.ErrDriverNotFound
		}
		return nil, fmt.Errorf("failed to find driver: %w", err)
	}
	return &driver, nil
}

func (r *mongoDriverRepository) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if err := checkID(id); err != nil {
		return err
	}
	filter, err := mongotx.Scoped(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"active": active}})
	if err != nil {
		return fmt.Errorf("failed to update driver: %w", err)
	}
	if result.MatchedCount == 0 {
		return fleeterrors.ErrDriverNotFound
	}
	return nil
}

func (r *mongoDriverRepository) List(ctx context.Context, activeOnly bool) ([]*model.Driver, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := bson.M{}
	if activeOnly {
		query["active"] = true
	}
	filter, err := mongotx.Scoped(ctx, query)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "full_name", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find drivers: %w", err)
	}
	defer cursor.Close(ctx)

	var drivers []*model.Driver
	if err = cursor.All(ctx, &drivers); err != nil {
		return nil, fmt.Errorf("failed to decode drivers: %w", err)
	}
	return drivers, nil
}

func (r *mongoDriverRepository) Active(ctx context.Context) ([]*model.Driver, error) {
	return r.List(ctx, true)
}
