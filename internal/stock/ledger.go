// Package stock owns the per-variant inventory count. It is mutated only by
// the order placement and commit paths.
package stock

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	ErrVariantNotFound   = errors.New("stock: variant not found")
)

// Ledger decrements variant stock. Check and decrement are one atomic
// operation so concurrent orders for the same variant cannot oversell.
type Ledger interface {
	Decrement(ctx context.Context, variantID string, quantity int) error
}

type MongoLedger struct {
	db *mongo.Database
}

func NewMongoLedger(db *mongo.Database) *MongoLedger {
	return &MongoLedger{db: db}
}

// Decrement performs a conditional update guarded by stock >= quantity.
// A zero match means either the variant is missing or the remaining stock
// is too low; the two are distinguished with a follow-up lookup.
func (l *MongoLedger) Decrement(ctx context.Context, variantID string, quantity int) error {
	if quantity < 1 {
		return nil
	}

	filter := bson.M{
		"_id":   variantID,
		"stock": bson.M{"$gte": quantity},
	}
	update := bson.M{"$inc": bson.M{"stock": -quantity}}

	res, err := l.db.Collection("variants").UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		err := l.db.Collection("variants").FindOne(ctx, bson.M{"_id": variantID}).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrVariantNotFound
		}
		if err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}
