package repository

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "buscharter/internal/bookings/errors"
	"buscharter/pkg/config"
	mongotx "buscharter/pkg/db/mongo"
	"buscharter/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TripRepository interface {
	Create(ctx context.Context, trip *model.Trip) error
	FindByID(ctx context.Context, id string) (*model.Trip, error)
	FindByBooking(ctx context.Context, bookingID string) ([]*model.Trip, error)
	Update(ctx context.Context, trip *model.Trip) error
}

type mongoTripRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTripRepository(cfg *config.Config) TripRepository {
	return &mongoTripRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(TripsCollection),
	}
}

func (r *mongoTripRepository) Create(ctx context.Context, trip *model.Trip) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := mongotx.Scoped(ctx, nil); err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, trip); err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

func (r *mongoTripRepository) FindByID(ctx context.Context, id string) (*model.Trip, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := checkID(id, bookingserrors.ErrInvalidID); err != nil {
		return nil, err
	}
	filter, err := mongotx.Scoped(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}

	var trip model.Trip
	if err := r.collection.FindOne(ctx, filter).Decode(&trip); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to find trip: %w", err)
	}
	return &trip, nil
}

func (r *mongoTripRepository) FindByBooking(ctx context.Context, bookingID string) ([]*model.Trip, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find trips: %w", err)
	}
	defer cursor.Close(ctx)

	var trips []*model.Trip
	if err = cursor.All(ctx, &trips); err != nil {
		return nil, fmt.Errorf("failed to decode trips: %w", err)
	}
	return trips, nil
}

func (r *mongoTripRepository) Update(ctx context.Context, trip *model.Trip) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"_id": trip.ID})
	if err != nil {
		return err
	}
	update := bson.M{
		"$set": bson.M{
			"start_time":         trip.StartTime,
			"end_time":           trip.EndTime,
			"pickup":             trip.Pickup,
			"destination":        trip.Destination,
			"requested_category": trip.RequestedCategory,
			"passengers":         trip.Passengers,
			"updated_at":         trip.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrTripNotFound
	}
	return nil
}
