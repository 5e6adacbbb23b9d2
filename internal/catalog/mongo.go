package catalog

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// MongoStore backs the resolver with the products and variants collections.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) VariantExists(ctx context.Context, id string) error {
	err := s.db.Collection("variants").
		FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"_id": 1})).
		Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *MongoStore) DefaultVariantID(ctx context.Context, productID string) (string, error) {
	var product models.Product
	err := s.db.Collection("products").FindOne(ctx, bson.M{
		"_id":       productID,
		"isDeleted": bson.M{"$ne": true},
	}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if product.DefaultVariantID != "" {
		if err := s.VariantExists(ctx, product.DefaultVariantID); err == nil {
			return product.DefaultVariantID, nil
		} else if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}

	var variant models.Variant
	err = s.db.Collection("variants").FindOne(
		ctx,
		bson.M{"productId": productID},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	).Decode(&variant)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return variant.ID, nil
}
