package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "buscharter/internal/bookings/errors"
	"buscharter/pkg/config"
	mongotx "buscharter/pkg/db/mongo"
	"buscharter/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BookingsCollection = "Bookings"
	TripsCollection    = "Trips"
	CountersCollection = "Booking_counters"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	List(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, error)
	Count(ctx context.Context, filter model.BookingFilter) (int64, error)
	// UpdateStatus writes to only if the stored status is still from.
	UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, change model.StatusChange) error
	SaveTotals(ctx context.Context, id string, totals model.BookingTotals) error
	// Fence bumps a counter on the booking document. A transaction that calls
	// it write-conflicts with any concurrent status change of the booking.
	Fence(ctx context.Context, id string) error
	AppendTrip(ctx context.Context, id string, tripID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(BookingsCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func checkID(id string, invalid error) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("%w: %s", invalid, id)
	}
	return nil
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := mongotx.Scoped(ctx, nil); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateCode, booking.Code)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := checkID(id, bookingserrors.ErrInvalidID); err != nil {
		return nil, err
	}
	filter, err := mongotx.Scoped(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) List(ctx context.Context, f model.BookingFilter) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, buildListFilter(f))
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(f.Limit)).
		SetSkip(f.Offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, f model.BookingFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, buildListFilter(f))
	if err != nil {
		return 0, err
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func buildListFilter(f model.BookingFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.CustomerID != "" {
		filter["customer_id"] = f.CustomerID
	}
	return filter
}

func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, change model.StatusChange) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"_id": id, "status": from})
	if err != nil {
		return err
	}
	update := bson.M{
		"$set":  bson.M{"status": to, "updated_at": change.At},
		"$push": bson.M{"history": change},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return findErr
		}
		return fmt.Errorf("%w: expected %s", bookingserrors.ErrStatusChanged, from)
	}
	return nil
}

func (r *mongoBookingRepository) SaveTotals(ctx context.Context, id string, totals model.BookingTotals) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"totals": totals}})
	if err != nil {
		return fmt.Errorf("failed to save booking totals: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) Fence(ctx context.Context, id string) error {
	if err := checkID(id, bookingserrors.ErrInvalidID); err != nil {
		return err
	}
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"fence": 1}})
	if err != nil {
		return fmt.Errorf("failed to fence booking: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) AppendTrip(ctx context.Context, id string, tripID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	update := bson.M{
		"$addToSet": bson.M{"trip_ids": tripID},
		"$set":      bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to append trip: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
