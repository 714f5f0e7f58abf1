package repository

import (
	"context"
	"errors"
	"fmt"

	reservationserrors "kitchenrent/internal/reservations/errors"
	"kitchenrent/pkg/config"
	mongotx "kitchenrent/pkg/db/mongo"
	"kitchenrent/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const EquipmentCollectionName = "Equipment"

// EquipmentRepository is a read-only view of the catalog.
type EquipmentRepository interface {
	FindByID(ctx context.Context, id string) (*model.Equipment, error)
}

type mongoEquipmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoEquipmentRepository(cfg *config.Config) EquipmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoEquipmentRepository{
		cfg:        cfg,
		collection: db.Collection(EquipmentCollectionName),
	}
}

func (r *mongoEquipmentRepository) FindByID(ctx context.Context, id string) (*model.Equipment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	var equipment model.Equipment
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&equipment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrEquipmentNotFound
		}
		return nil, fmt.Errorf("failed to find equipment: %w", err)
	}

	return &equipment, nil
}
