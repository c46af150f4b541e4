package repository

import (
	"context"
	"errors"
	"fmt"

	financeerrors "buscharter/internal/finance/errors"
	"buscharter/pkg/config"
	mongotx "buscharter/pkg/db/mongo"
	"buscharter/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ChargesCollection  = "Booking_charges"
	PaymentsCollection = "Payments"
)

type ChargeRepository interface {
	Create(ctx context.Context, charge *model.Charge) error
	FindByID(ctx context.Context, id string) (*model.Charge, error)
	Update(ctx context.Context, charge *model.Charge) error
	Delete(ctx context.Context, id string) error
	// ByBooking returns every charge of the booking in insertion order.
	ByBooking(ctx context.Context, bookingID string) ([]*model.Charge, error)
}

type mongoChargeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoChargeRepository(cfg *config.Config) ChargeRepository {
	return &mongoChargeRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(ChargesCollection),
	}
}

func (r *mongoChargeRepository) Create(ctx context.Context, charge *model.Charge) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := mongotx.Scoped(ctx, nil); err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, charge); err != nil {
		return fmt.Errorf("failed to create charge: %w", err)
	}
	return nil
}

func (r *mongoChargeRepository) FindByID(ctx context.Context, id string) (*model.Charge, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%w: %s", financeerrors.ErrInvalidID, id)
	}
	filter, err := mongotx.Scoped(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}

	var charge model.Charge
	if err := r.collection.FindOne(ctx, filter).Decode(&charge); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, financeerrors.ErrChargeNotFound
		}
		return nil, fmt.Errorf("failed to find charge: %w", err)
	}
	return &charge, nil
}

func (r *mongoChargeRepository) Update(ctx context.Context, charge *model.Charge) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"_id": charge.ID})
	if err != nil {
		return err
	}
	update := bson.M{
		"$set": bson.M{
			"kind":        charge.Kind,
			"description": charge.Description,
			"quantity":    charge.Quantity,
			"unit_price":  charge.UnitPrice,
			"total":       charge.Total,
			"updated_at":  charge.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update charge: %w", err)
	}
	if result.MatchedCount == 0 {
		return financeerrors.ErrChargeNotFound
	}
	return nil
}

func (r *mongoChargeRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete charge: %w", err)
	}
	if result.DeletedCount == 0 {
		return financeerrors.ErrChargeNotFound
	}
	return nil
}

func (r *mongoChargeRepository) ByBooking(ctx context.Context, bookingID string) ([]*model.Charge, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find charges: %w", err)
	}
	defer cursor.Close(ctx)

	var charges []*model.Charge
	if err = cursor.All(ctx, &charges); err != nil {
		return nil, fmt.Errorf("failed to decode charges: %w", err)
	}
	return charges, nil
}
