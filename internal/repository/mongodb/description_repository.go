package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/mkarpov/adboard-backend/internal/models"
	pkgerrors "github.com/mkarpov/adboard-backend/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// DescriptionRepository stores advertisement description bodies in MongoDB;
// advertisements rows reference them by hex object id.
type DescriptionRepository struct {
	collection *mongo.Collection
}

func NewDescriptionRepository(db *mongo.Database) *DescriptionRepository {
	return &DescriptionRepository{collection: db.Collection("descriptions")}
}

func (r *DescriptionRepository) Insert(ctx context.Context, desc *models.AdvertisementDescription) (string, error) {
	if desc == nil {
		return "", fmt.Errorf("description is nil")
	}
	res, err := r.collection.InsertOne(ctx, desc)
	if err != nil {
		slog.Error("failed to insert description", "error", err)
		return "", fmt.Errorf("failed to insert description: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (r *DescriptionRepository) Get(ctx context.Context, id string) (*models.AdvertisementDescription, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, pkgerrors.ErrDescriptionNotFound
	}
	var desc models.AdvertisementDescription
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&desc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.ErrDescriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get description: %w", err)
	}
	return &desc, nil
}

func (r *DescriptionRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return pkgerrors.ErrDescriptionNotFound
	}
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete description: %w", err)
	}
	return nil
}
