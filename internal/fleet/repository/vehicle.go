package repository

import (
	"context"
	"errors"
	"fmt"

	fleeterrors "buscharter/internal/fleet/errors"
	"buscharter/pkg/config"
	mongotx "buscharter/pkg/db/mongo"
	"buscharter/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	VehiclesCollection    = "Vehicles"
	DriversCollection     = "Drivers"
	AssignmentsCollection = "Trip_assignments"
	FencesCollection      = "Vehicle_fences"
	LocksCollection       = "Vehicle_locks"
)

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *model.Vehicle) error
	FindByID(ctx context.Context, id string) (*model.Vehicle, error)
	Update(ctx context.Context, vehicle *model.Vehicle) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, filter model.VehicleFilter) ([]*model.Vehicle, error)
	// Active lists active vehicles, all categories when category is empty.
	Active(ctx context.Context, category model.VehicleCategory) ([]*model.Vehicle, error)
}

type mongoVehicleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoVehicleRepository(cfg *config.Config) VehicleRepository {
	return &mongoVehicleRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(VehiclesCollection),
	}
}

func checkID(id string) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("%w: %s", fleeterrors.ErrInvalidID, id)
	}
	return nil
}

func (r *mongoVehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := mongotx.Scoped(ctx, nil); err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, vehicle); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", fleeterrors.ErrDuplicatePlate, vehicle.PlateNumber)
		}
		return fmt.Errorf("failed to create vehicle: %w", err)
	}
	return nil
}

func (r *mongoVehicleRepository) FindByID(ctx context.Context, id string) (*model.Vehicle, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := checkID(id); err != nil {
		return nil, err
	}
	filter, err := mongotx.Scoped(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}

	var vehicle model.Vehicle
	if err := r.collection.FindOne(ctx, filter).Decode(&vehicle); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fleeterrors.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	return &vehicle, nil
}

func (r *mongoVehicleRepository) Update(ctx context.Context, vehicle *model.Vehicle) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"_id": vehicle.ID})
	if err != nil {
		return err
	}
	update := bson.M{
		"$set": bson.M{
			"plate_number":  vehicle.PlateNumber,
			"display_name":  vehicle.DisplayName,
			"category":      vehicle.Category,
			"seat_capacity": vehicle.SeatCapacity,
			"ownership":     vehicle.Ownership,
			"vendor_name":   vehicle.VendorName,
			"updated_at":    vehicle.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", fleeterrors.ErrDuplicatePlate, vehicle.PlateNumber)
		}
		return fmt.Errorf("failed to update vehicle: %w", err)
	}
	if result.MatchedCount == 0 {
		return fleeterrors.ErrVehicleNotFound
	}
	return nil
}

func (r *mongoVehicleRepository) SetActive(ctx context.Context, id string, active bool) error {
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
		return fmt.Errorf("failed to update vehicle: %w", err)
	}
	if result.MatchedCount == 0 {
		return fleeterrors.ErrVehicleNotFound
	}
	return nil
}

func (r *mongoVehicleRepository) List(ctx context.Context, f model.VehicleFilter) ([]*model.Vehicle, error) {
	query := bson.M{}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.ActiveOnly {
		query["active"] = true
	}
	return r.find(ctx, query)
}

func (r *mongoVehicleRepository) Active(ctx context.Context, category model.VehicleCategory) ([]*model.Vehicle, error) {
	return r.List(ctx, model.VehicleFilter{Category: category, ActiveOnly: true})
}

func (r *mongoVehicleRepository) find(ctx context.Context, query bson.M) ([]*model.Vehicle, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, query)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "display_name", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicles: %w", err)
	}
	defer cursor.Close(ctx)

	var vehicles []*model.Vehicle
	if err = cursor.All(ctx, &vehicles); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}
	return vehicles, nil
}
