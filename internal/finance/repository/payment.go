package repository

import (
	"context"
	"fmt"

	"buscharter/pkg/config"
	mongotx "buscharter/pkg/db/mongo"
	"buscharter/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PaymentRepository is append-only. A mistaken payment is corrected with a
// DISCOUNT or ADDITIONAL charge, never by editing the payment.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	ByBooking(ctx context.Context, bookingID string) ([]*model.Payment, error)
}

type mongoPaymentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPaymentRepository(cfg *config.Config) PaymentRepository {
	return &mongoPaymentRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(PaymentsCollection),
	}
}

func (r *mongoPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := mongotx.Scoped(ctx, nil); err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *mongoPaymentRepository) ByBooking(ctx context.Context, bookingID string) ([]*model.Payment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter, err := mongotx.Scoped(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "paid_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find payments: %w", err)
	}
	defer cursor.Close(ctx)

	var payments []*model.Payment
	if err = cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	return payments, nil
}
