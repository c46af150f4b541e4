package mongo

import (
	"context"
	"fmt"

	bookingsrepo "buscharter/internal/bookings/repository"
	customersrepo "buscharter/internal/customers/repository"
	financerepo "buscharter/internal/finance/repository"
	fleetrepo "buscharter/internal/fleet/repository"
	"buscharter/internal/migrations/mongo/validators"
	"buscharter/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CollectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

var (
	BookingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	TripsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "booking_id", Value: 1}, {Key: "start_time", Value: 1}}},
	}

	ChargesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "booking_id", Value: 1}, {Key: "created_at", Value: 1}}},
	}

	PaymentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "booking_id", Value: 1}, {Key: "paid_at", Value: 1}}},
	}

	VehiclesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "plate_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "active", Value: 1}, {Key: "category", Value: 1}}},
	}

	DriversIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "active", Value: 1}, {Key: "full_name", Value: 1}}},
	}

	// The partial unique index is the storage-level guard against assigning
	// one vehicle to one trip twice. Cancelled rows leave the index.
	AssignmentsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "vehicle_id", Value: 1}, {Key: "trip_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("live_vehicle_trip").
				SetPartialFilterExpression(bson.M{"live": true}),
		},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "vehicle_id", Value: 1}, {Key: "live", Value: 1}, {Key: "trip_start", Value: 1}, {Key: "trip_end", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "driver_id", Value: 1}, {Key: "trip_start", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "co_driver_id", Value: 1}, {Key: "trip_start", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "booking_id", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "trip_id", Value: 1}}},
	}

	LocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	CustomersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "name", Value: 1}}},
	}
)

// Collections lists every collection the service owns. Counters and fences
// are keyed by _id and need no extra index or validator.
func Collections() map[string]CollectionDef {
	return map[string]CollectionDef{
		bookingsrepo.BookingsCollection: {Indexes: BookingsIndexes, Validator: validators.BookingValidator},
		bookingsrepo.TripsCollection:    {Indexes: TripsIndexes, Validator: validators.TripValidator},
		bookingsrepo.CountersCollection: {},
		financerepo.ChargesCollection:   {Indexes: ChargesIndexes, Validator: validators.ChargeValidator},
		financerepo.PaymentsCollection:  {Indexes: PaymentsIndexes, Validator: validators.PaymentValidator},
		fleetrepo.VehiclesCollection:    {Indexes: VehiclesIndexes, Validator: validators.VehicleValidator},
		fleetrepo.DriversCollection:     {Indexes: DriversIndexes, Validator: validators.DriverValidator},
		fleetrepo.AssignmentsCollection: {Indexes: AssignmentsIndexes, Validator: validators.AssignmentValidator},
		fleetrepo.FencesCollection:      {},
		fleetrepo.LocksCollection:       {Indexes: LocksIndexes},
		customersrepo.CollectionName:    {Indexes: CustomersIndexes, Validator: validators.CustomerValidator},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for name, def := range Collections() {
		if err := ensureCollection(ctx, db, log, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, log, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, log *logger.Logger, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, log *logger.Logger, name string, models []mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
