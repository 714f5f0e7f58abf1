package repository

import (
	"context"
	"fmt"
	"time"

	"kitchenrent/pkg/config"
	mongotx "kitchenrent/pkg/db/mongo"
	"kitchenrent/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Reservation_locks"

// ReservationLockRepository stores advisory locks keyed by equipment.
type ReservationLockRepository interface {
	// Create returns a duplicate key error if the lock is already held.
	Create(ctx context.Context, lock *model.ReservationLock) error
	Delete(ctx context.Context, lockID, owner string) error
	// DeleteExpired clears a lock whose holder died before releasing it.
	DeleteExpired(ctx context.Context, lockID string, now time.Time) (bool, error)
}

type mongoReservationLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewReservationLockRepository(cfg *config.Config) ReservationLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoReservationLockRepository) Create(ctx context.Context, lock *model.ReservationLock) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	lock.CreatedAt = time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, lock)
	return err
}

func (r *mongoReservationLockRepository) Delete(ctx context.Context, lockID, owner string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "owner": owner}); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", lockID, err)
	}
	return nil
}

func (r *mongoReservationLockRepository) DeleteExpired(ctx context.Context, lockID string, now time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID, "expires_at": bson.M{"$lt": now}})
	if err != nil {
		return false, fmt.Errorf("failed to clear expired lock %s: %w", lockID, err)
	}
	return result.DeletedCount > 0, nil
}
