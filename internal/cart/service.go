// Package cart is the server half of the cart reconciliation protocol:
// per-user persisted carts, the login-time merge, and single-line upserts
// pushed by the client store.
package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/catalog"
	"backend/internal/models"
)

var ErrUnauthorized = errors.New("cart: user session required")

// ItemDTO is the wire shape shared with the client store. The id may be a
// variant id, a product id, or a legacy reference; the server resolves it.
type ItemDTO struct {
	ProductVariantID string `json:"productVariantId" binding:"required"`
	Quantity         int    `json:"quantity" binding:"required"`
}

type Service struct {
	db       *mongo.Database
	resolver *catalog.Resolver
}

func NewService(db *mongo.Database, resolver *catalog.Resolver) *Service {
	return &Service{db: db, resolver: resolver}
}

// Get returns the user's cart projected to product-level refs (the client
// keys its display state by product).
func (s *Service) Get(ctx context.Context, userID string) ([]ItemDTO, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	cart, err := s.findCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return []ItemDTO{}, nil
	}
	return s.projectToProductRefs(ctx, cart.Items)
}

// Sync merges the client's local items into the persisted cart and returns
// the merged result. Quantities for the same variant are summed, not
// overwritten: concurrent-session carts accumulate. An empty incoming list
// means fetch-only; server state is returned unmodified.
func (s *Service) Sync(ctx context.Context, userID string, localItems []ItemDTO) ([]ItemDTO, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	cart, err := s.findOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(localItems) == 0 {
		return s.projectToProductRefs(ctx, cart.Items)
	}

	resolved := make([]models.CartItem, 0, len(localItems))
	for _, item := range localItems {
		variantID, err := s.resolver.Resolve(ctx, item.ProductVariantID)
		if errors.Is(err, catalog.ErrNotFound) {
			log.Printf("[CART] [WARN] sync: skipping unresolvable ref %q", item.ProductVariantID)
			continue
		}
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, models.CartItem{ProductVariantID: variantID, Quantity: item.Quantity})
	}

	merged := mergeQuantities(cart.Items, resolved)

	_, err = s.db.Collection("carts").UpdateOne(ctx,
		bson.M{"_id": cart.ID},
		bson.M{"$set": bson.M{"items": merged, "updatedAt": time.Now()}},
	)
	if err != nil {
		return nil, err
	}

	return s.projectToProductRefs(ctx, merged)
}

// UpdateItem sets the quantity of one line. Zero or negative removes it.
// Unresolvable refs are skipped with a warning, never an error: this is the
// best-effort push target of the client store.
func (s *Service) UpdateItem(ctx context.Context, userID, ref string, quantity int) error {
	if userID == "" {
		return ErrUnauthorized
	}

	variantID, err := s.resolver.Resolve(ctx, ref)
	if errors.Is(err, catalog.ErrNotFound) {
		log.Printf("[CART] [WARN] update: skipping unresolvable ref %q", ref)
		return nil
	}
	if err != nil {
		return err
	}

	cart, err := s.findOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}

	items := make([]models.CartItem, 0, len(cart.Items)+1)
	found := false
	for _, item := range cart.Items {
		if item.ProductVariantID == variantID {
			found = true
			if quantity > 0 {
				items = append(items, models.CartItem{ProductVariantID: variantID, Quantity: quantity})
			}
			continue
		}
		items = append(items, item)
	}
	if !found && quantity > 0 {
		items = append(items, models.CartItem{ProductVariantID: variantID, Quantity: quantity})
	}

	_, err = s.db.Collection("carts").UpdateOne(ctx,
		bson.M{"_id": cart.ID},
		bson.M{"$set": bson.M{"items": items, "updatedAt": time.Now()}},
	)
	return err
}

// Clear empties the cart. The cart document itself is kept.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	_, err := s.db.Collection("carts").UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now()}},
	)
	return err
}

// mergeQuantities sums incoming quantities into the existing lines keyed by
// variant. Existing lines always survive; incoming lines add to them.
func mergeQuantities(existing, incoming []models.CartItem) []models.CartItem {
	index := make(map[string]int, len(existing))
	merged := make([]models.CartItem, 0, len(existing)+len(incoming))

	for _, item := range existing {
		if pos, ok := index[item.ProductVariantID]; ok {
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductVariantID] = len(merged)
		merged = append(merged, item)
	}
	for _, item := range incoming {
		if pos, ok := index[item.ProductVariantID]; ok {
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductVariantID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

func (s *Service) findCart(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.Collection("carts").FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *Service) findOrCreateCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.findCart(ctx, userID)
	if err != nil || cart != nil {
		return cart, err
	}

	now := time.Now()
	created := &models.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     []models.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.Collection("carts").InsertOne(ctx, created); err != nil {
		// Unique userId index: a concurrent request created it first.
		if mongo.IsDuplicateKeyError(err) {
			return s.findCart(ctx, userID)
		}
		return nil, err
	}
	return created, nil
}

// projectToProductRefs maps stored variant ids back to product-level refs
// for the client's display state. Unknown variants fall back to the raw id.
func (s *Service) projectToProductRefs(ctx context.Context, items []models.CartItem) ([]ItemDTO, error) {
	if len(items) == 0 {
		return []ItemDTO{}, nil
	}

	variantIDs := make([]string, 0, len(items))
	for _, item := range items {
		variantIDs = append(variantIDs, item.ProductVariantID)
	}

	cursor, err := s.db.Collection("variants").Find(ctx, bson.M{"_id": bson.M{"$in": variantIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	productByVariant := make(map[string]string, len(items))
	for cursor.Next(ctx) {
		var variant models.Variant
		if err := cursor.Decode(&variant); err != nil {
			return nil, err
		}
		productByVariant[variant.ID] = variant.ProductID
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		ref := item.ProductVariantID
		if productID, ok := productByVariant[ref]; ok && productID != "" {
			ref = productID
		}
		out = append(out, ItemDTO{ProductVariantID: ref, Quantity: item.Quantity})
	}
	return out, nil
}
