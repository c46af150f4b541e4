package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	fleeterrors "buscharter/internal/fleet/errors"
	"buscharter/pkg/config"
	mongotx "buscharter/pkg/db/mongo"
	"buscharter/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AssignmentRepository reads the denormalised trip window and booking status
// on each assignment, so conflict queries never join trips or bookings.
// Only live assignments of committed bookings reserve a vehicle or driver.
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	FindByID(ctx context.Context, id string) (*model.Assignment, error)
	// UpdateStatus persists status, live flag, odometer readings and updated_at.
	UpdateStatus(ctx context.Context, a *model.Assignment) error
	Overlapping(ctx context.Context, vehicleID string, start, end time.Time, excludeTripID string) ([]*model.Assignment, error)
	// NearestBefore returns the reservation ending closest before t, or nil.
	NearestBefore(ctx context.Context, vehicleID string, t time.Time, excludeTripID string) (*model.Assignment, error)
	// NearestAfter returns the reservation starting closest after t, or nil.
	NearestAfter(ctx context.Context, vehicleID string, t time.Time, excludeTripID string) (*model.Assignment, error)
	DriverOverlapping(ctx context.Context, driverID string, start, end time.Time, excludeTripID string) ([]*model.Assignment, error)
	BusyVehicleIDs(ctx context.Context, start, end time.Time) ([]string, error)
	BusyDriverIDs(ctx context.Context, start, end time.Time) ([]string, error)
	SyncBookingStatus(ctx context.Context, bookingID string, status model.BookingStatus) error
	CancelByBooking(ctx context.Context, bookingID string) (int64, error)
	ByTrip(ctx context.Context, tripID string) ([]*model.Assignment, error)
	ByBooking(ctx context.Context, bookingID string) ([]*model.Assignment, error)
	Dispatch(ctx context.Context, from, to time.Time) ([]*model.Assignment, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoAssignmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoAssignmentRepository(cfg *config.Config) AssignmentRepository {
	return &mongoAssignmentRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(AssignmentsCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func reserving() bson.M {
	return bson.M{
		"live":           true,
		"booking_status": bson.M{"$in": model.CommittedStatuses},
	}
}

func overlapping(query bson.M, start, end time.Time, excludeTripID string) bson.M {
	query["trip_start"] = bson.M{"$lte": end}
	query["trip_end"] = bson.M{"$gte": start}
	if excludeTripID != "" {
		query["trip_id"] = bson.M{"$ne": excludeTripID}
	}
	return query
}

func (r *mongoAssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := mongotx.Scoped(ctx, nil); err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, a); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: vehicle %s trip %s", fleeterrors.ErrDuplicateAssignment, a.VehicleID, a.TripID)
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *mongoAssignmentRepository) FindByID(ctx context.Context, id string) (*model.Assignment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := checkID(id); err != nil {
		return nil, err
	}
	filter, err := mongotx.Scoped(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}

	var a model.Assignment
	if err := r.collection.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fleeterrors.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to find assignment: %w", err)
	}
	return &a, nil
}

func (r *mongoAssignmentRepository) UpdateStatus(ctx context.Context, a *model.Assignment) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"_id": a.ID})
	if err != nil {
		return err
	}
	set := bson.M{
		"status":     a.Status,
		"live":       a.Live,
		"updated_at": a.UpdatedAt,
	}
	if a.StartKm != nil {
		set["start_km"] = *a.StartKm
	}
	if a.EndKm != nil {
		set["end_km"] = *a.EndKm
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if result.MatchedCount == 0 {
		return fleeterrors.ErrAssignmentNotFound
	}
	return nil
}

func (r *mongoAssignmentRepository) Overlapping(ctx context.Context, vehicleID string, start, end time.Time, excludeTripID string) ([]*model.Assignment, error) {
	query := reserving()
	query["vehicle_id"] = vehicleID
	return r.find(ctx, overlapping(query, start, end, excludeTripID), options.Find().SetSort(bson.D{{Key: "trip_start", Value: 1}}))
}

func (r *mongoAssignmentRepository) NearestBefore(ctx context.Context, vehicleID string, t time.Time, excludeTripID string) (*model.Assignment, error) {
	query := reserving()
	query["vehicle_id"] = vehicleID
	query["trip_end"] = bson.M{"$lt": t}
	if excludeTripID != "" {
		query["trip_id"] = bson.M{"$ne": excludeTripID}
	}
	return r.findOne(ctx, query, bson.D{{Key: "trip_end", Value: -1}})
}

func (r *mongoAssignmentRepository) NearestAfter(ctx context.Context, vehicleID string, t time.Time, excludeTripID string) (*model.Assignment, error) {
	query := reserving()
	query["vehicle_id"] = vehicleID
	query["trip_start"] = bson.M{"$gt": t}
	if excludeTripID != "" {
		query["trip_id"] = bson.M{"$ne": excludeTripID}
	}
	return r.findOne(ctx, query, bson.D{{Key: "trip_start", Value: 1}})
}

func (r *mongoAssignmentRepository) DriverOverlapping(ctx context.Context, driverID string, start, end time.Time, excludeTripID string) ([]*model.Assignment, error) {
	query := reserving()
	query["$or"] = bson.A{
		bson.M{"driver_id": driverID},
		bson.M{"co_driver_id": driverID},
	}
	return r.find(ctx, overlapping(query, start, end, excludeTripID), options.Find().SetSort(bson.D{{Key: "trip_start", Value: 1}}))
}

func (r *mongoAssignmentRepository) BusyVehicleIDs(ctx context.Context, start, end time.Time) ([]string, error) {
	return r.distinct(ctx, overlapping(reserving(), start, end, ""), "vehicle_id")
}

func (r *mongoAssignmentRepository) BusyDriverIDs(ctx context.Context, start, end time.Time) ([]string, error) {
	drivers, err := r.distinct(ctx, overlapping(reserving(), start, end, ""), "driver_id")
	if err != nil {
		return nil, err
	}
	coDrivers, err := r.distinct(ctx, overlapping(reserving(), start, end, ""), "co_driver_id")
	if err != nil {
		return nil, err
	}

	ids := append(drivers, coDrivers...)
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (r *mongoAssignmentRepository) SyncBookingStatus(ctx context.Context, bookingID string, status model.BookingStatus) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return err
	}
	if _, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"booking_status": status}}); err != nil {
		return fmt.Errorf("failed to sync booking status: %w", err)
	}
	return nil
}

func (r *mongoAssignmentRepository) CancelByBooking(ctx context.Context, bookingID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"booking_id": bookingID, "live": true})
	if err != nil {
		return 0, err
	}
	update := bson.M{"$set": bson.M{
		"status":     model.AssignmentCancelled,
		"live":       false,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel assignments: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoAssignmentRepository) ByTrip(ctx context.Context, tripID string) ([]*model.Assignment, error) {
	return r.find(ctx, bson.M{"trip_id": tripID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (r *mongoAssignmentRepository) ByBooking(ctx context.Context, bookingID string) ([]*model.Assignment, error) {
	return r.find(ctx, bson.M{"booking_id": bookingID}, options.Find().SetSort(bson.D{{Key: "trip_start", Value: 1}}))
}

func (r *mongoAssignmentRepository) Dispatch(ctx context.Context, from, to time.Time) ([]*model.Assignment, error) {
	query := bson.M{
		"live":           true,
		"booking_status": bson.M{"$in": model.AssignableStatuses},
		"trip_start":     bson.M{"$gte": from, "$lt": to},
	}
	return r.find(ctx, query, options.Find().SetSort(bson.D{{Key: "trip_start", Value: 1}, {Key: "_id", Value: 1}}))
}

func (r *mongoAssignmentRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]*model.Assignment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, query)
	if err != nil {
		return nil, err
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find assignments: %w", err)
	}
	defer cursor.Close(ctx)

	var assignments []*model.Assignment
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, fmt.Errorf("failed to decode assignments: %w", err)
	}
	return assignments, nil
}

func (r *mongoAssignmentRepository) findOne(ctx context.Context, query bson.M, sort bson.D) (*model.Assignment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, query)
	if err != nil {
		return nil, err
	}

	var a model.Assignment
	if err := r.collection.FindOne(ctx, filter, options.FindOne().SetSort(sort)).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find assignment: %w", err)
	}
	return &a, nil
}

func (r *mongoAssignmentRepository) distinct(ctx context.Context, query bson.M, field string) ([]string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, query)
	if err != nil {
		return nil, err
	}

	values, err := r.collection.Distinct(ctx, field, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list busy %s: %w", field, err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

func (r *mongoAssignmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
