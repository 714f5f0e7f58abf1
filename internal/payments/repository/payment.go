package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	paymentserrors "kitchenrent/internal/payments/errors"
	"kitchenrent/pkg/config"
	mongotx "kitchenrent/pkg/db/mongo"
	"kitchenrent/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Payments"

// PaymentRepository stores the reservation to charge correlation. There is
// at most one payment per reservation.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	FindByReservation(ctx context.Context, reservationID string) (*model.Payment, error)
	FindByChargeID(ctx context.Context, chargeID string) (*model.Payment, error)
	// ReplaceCharge points a failed payment at a new charge and resets it to pending.
	ReplaceCharge(ctx context.Context, id string, expected model.PaymentStatus, chargeID string, amount int64, currency string) (*model.Payment, error)
	// UpdateStatus moves the payment for chargeID to `to` if its status is one
	// of from. changed is false when it was already in `to`.
	UpdateStatus(ctx context.Context, chargeID string, from []model.PaymentStatus, to model.PaymentStatus) (payment *model.Payment, changed bool, err error)
	MarkRefunded(ctx context.Context, id, refundID string, amount int64, at time.Time) (*model.Payment, error)
}

type mongoPaymentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPaymentRepository(cfg *config.Config) PaymentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPaymentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	payment.CreatedAt = now
	payment.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, payment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", paymentserrors.ErrAlreadyExists, payment.ReservationID)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		payment.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPaymentRepository) FindByReservation(ctx context.Context, reservationID string) (*model.Payment, error) {
	return r.findOne(ctx, bson.M{"reservation_id": reservationID})
}

func (r *mongoPaymentRepository) FindByChargeID(ctx context.Context, chargeID string) (*model.Payment, error) {
	return r.findOne(ctx, bson.M{"charge_id": chargeID})
}

func (r *mongoPaymentRepository) findOne(ctx context.Context, filter bson.M) (*model.Payment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var payment model.Payment
	if err := r.collection.FindOne(ctx, filter).Decode(&payment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, paymentserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return &payment, nil
}

func (r *mongoPaymentRepository) ReplaceCharge(ctx context.Context, id string, expected model.PaymentStatus, chargeID string, amount int64, currency string) (*model.Payment, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", paymentserrors.ErrInvalidID, id)
	}

	return r.conditionalUpdate(ctx, bson.M{"_id": objectID, "status": expected}, bson.M{
		"charge_id": chargeID,
		"amount":    amount,
		"currency":  currency,
		"status":    model.PaymentPending,
	})
}

func (r *mongoPaymentRepository) UpdateStatus(ctx context.Context, chargeID string, from []model.PaymentStatus, to model.PaymentStatus) (*model.Payment, bool, error) {
	updated, err := r.conditionalUpdate(ctx, bson.M{"charge_id": chargeID, "status": bson.M{"$in": from}}, bson.M{"status": to})
	if err == nil {
		return updated, true, nil
	}
	if !errors.Is(err, paymentserrors.ErrStaleStatus) {
		return nil, false, err
	}

	current, findErr := r.FindByChargeID(ctx, chargeID)
	if findErr != nil {
		return nil, false, findErr
	}
	if current.Status == to {
		return current, false, nil
	}
	return current, false, err
}

func (r *mongoPaymentRepository) MarkRefunded(ctx context.Context, id, refundID string, amount int64, at time.Time) (*model.Payment, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", paymentserrors.ErrInvalidID, id)
	}

	return r.conditionalUpdate(ctx, bson.M{"_id": objectID, "status": model.PaymentSucceeded}, bson.M{
		"status":        model.PaymentRefunded,
		"refund_id":     refundID,
		"refund_amount": amount,
		"refunded_at":   at.UTC().Truncate(time.Millisecond),
	})
}

func (r *mongoPaymentRepository) conditionalUpdate(ctx context.Context, filter, set bson.M) (*model.Payment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Payment
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.missOrStale(ctx, filter)
		}
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}
	return &updated, nil
}

func (r *mongoPaymentRepository) missOrStale(ctx context.Context, filter bson.M) error {
	identity := bson.M{}
	for _, key := range []string{"_id", "charge_id"} {
		if v, ok := filter[key]; ok {
			identity[key] = v
		}
	}
	count, err := r.collection.CountDocuments(ctx, identity, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to re-read payment: %w", err)
	}
	if count == 0 {
		return paymentserrors.ErrNotFound
	}
	return paymentserrors.ErrStaleStatus
}
