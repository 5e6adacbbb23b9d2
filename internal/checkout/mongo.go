package checkout

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/catalog"
	"backend/internal/models"
)

type MongoStore struct {
	db       *mongo.Database
	resolver *catalog.Resolver
}

func NewMongoStore(db *mongo.Database, resolver *catalog.Resolver) *MongoStore {
	return &MongoStore{db: db, resolver: resolver}
}

func (s *MongoStore) ResolveVariantRef(ctx context.Context, ref string) (string, error) {
	return s.resolver.Resolve(ctx, ref)
}

func (s *MongoStore) VariantWithProduct(ctx context.Context, variantID string) (*models.Variant, *models.Product, error) {
	var variant models.Variant
	err := s.db.Collection("variants").FindOne(ctx, bson.M{"_id": variantID}).Decode(&variant)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	var product models.Product
	err = s.db.Collection("products").FindOne(ctx, bson.M{"_id": variant.ProductID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	return &variant, &product, nil
}

func (s *MongoStore) CouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := s.db.Collection("coupons").FindOne(ctx, bson.M{"code": code}).Decode(&coupon)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (s *MongoStore) DefaultShippingAddress(ctx context.Context, userID string) (*models.Address, error) {
	var address models.Address
	err := s.db.Collection("addresses").FindOne(
		ctx,
		bson.M{
			"userId":           userID,
			"type":             models.AddressTypeShipping,
			"isProfileVisible": true,
		},
		options.FindOne().SetSort(bson.D{{Key: "isDefault", Value: -1}, {Key: "_id", Value: -1}}),
	).Decode(&address)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &address, nil
}

func (s *MongoStore) PaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Collection("payments").FindOne(ctx, bson.M{"transactionId": transactionID}).Decode(&payment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *MongoStore) InsertAddress(ctx context.Context, address *models.Address) error {
	_, err := s.db.Collection("addresses").InsertOne(ctx, address)
	return err
}

func (s *MongoStore) InsertOrder(ctx context.Context, order *models.Order) error {
	_, err := s.db.Collection("orders").InsertOne(ctx, order)
	return err
}

func (s *MongoStore) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(items))
	for _, item := range items {
		docs = append(docs, item)
	}
	_, err := s.db.Collection("order_items").InsertMany(ctx, docs)
	return err
}

func (s *MongoStore) InsertPayment(ctx context.Context, payment *models.Payment) error {
	_, err := s.db.Collection("payments").InsertOne(ctx, payment)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateTransaction
	}
	return err
}

func (s *MongoStore) ClearCart(ctx context.Context, userID string) error {
	_, err := s.db.Collection("carts").UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now()}},
	)
	return err
}

func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
