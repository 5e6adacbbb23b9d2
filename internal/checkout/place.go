package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"backend/internal/catalog"
	"backend/internal/models"
	"backend/internal/stock"
)

// OutOfStockError aborts a direct placement. The transaction rolls back any
// decrements already applied for earlier lines.
type OutOfStockError struct {
	VariantID string
	Requested int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("checkout: not enough stock for variant %s (requested %d)", e.VariantID, e.Requested)
}

// PlaceOrder is the direct cart-to-order path for non-card flows: no hosted
// payment session, payment is collected on delivery. Stock check and
// decrement, order creation and cart clearing run in one transaction, so a
// single insufficient line fails the whole placement with nothing applied.
func (s *Service) PlaceOrder(ctx context.Context, user Identity, items []CartItemInput) (*CommitResult, error) {
	if user.ID == "" {
		return nil, ErrAuthRequired
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	orderID := uuid.NewString()

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		orderItems := make([]models.OrderItem, 0, len(items))
		total := 0.0

		for _, item := range items {
			variantID, err := s.store.ResolveVariantRef(ctx, item.ProductVariantID)
			if errors.Is(err, catalog.ErrNotFound) {
				log.Printf("[ORDER] [WARN] skipping unresolvable ref %q", item.ProductVariantID)
				continue
			}
			if err != nil {
				return err
			}

			variant, _, err := s.store.VariantWithProduct(ctx, variantID)
			if err != nil {
				return err
			}

			if err := s.ledger.Decrement(ctx, variantID, item.Quantity); err != nil {
				if errors.Is(err, stock.ErrInsufficientStock) {
					return &OutOfStockError{VariantID: variantID, Requested: item.Quantity}
				}
				return err
			}

			unitPrice := variant.EffectivePrice()
			orderItems = append(orderItems, models.OrderItem{
				ID:               uuid.NewString(),
				OrderID:          orderID,
				ProductVariantID: variantID,
				Quantity:         item.Quantity,
				PriceAtPurchase:  unitPrice,
			})
			total += unitPrice * float64(item.Quantity)
		}

		if len(orderItems) == 0 {
			return ErrNoValidItems
		}

		// Snapshot the saved shipping address so later profile edits cannot
		// rewrite this order's destination.
		var shippingSnapshot *models.Address
		saved, err := s.store.DefaultShippingAddress(ctx, user.ID)
		if err != nil {
			return err
		}
		if saved != nil {
			shippingSnapshot = &models.Address{
				ID:         uuid.NewString(),
				UserID:     user.ID,
				Type:       models.AddressTypeShipping,
				Line1:      saved.Line1,
				Line2:      saved.Line2,
				City:       saved.City,
				State:      saved.State,
				Country:    saved.Country,
				PostalCode: saved.PostalCode,
			}
		} else {
			shippingSnapshot = &models.Address{
				ID:     uuid.NewString(),
				UserID: user.ID,
				Type:   models.AddressTypeShipping,
			}
		}
		if err := s.store.InsertAddress(ctx, shippingSnapshot); err != nil {
			return err
		}

		billingSnapshot := *shippingSnapshot
		billingSnapshot.ID = uuid.NewString()
		billingSnapshot.Type = models.AddressTypeBilling
		if err := s.store.InsertAddress(ctx, &billingSnapshot); err != nil {
			return err
		}

		order := &models.Order{
			ID:                orderID,
			UserID:            user.ID,
			Status:            models.OrderStatusPending,
			TotalAmount:       total,
			ShippingAddressID: shippingSnapshot.ID,
			BillingAddressID:  billingSnapshot.ID,
			CreatedAt:         s.now(),
		}
		if err := s.store.InsertOrder(ctx, order); err != nil {
			return err
		}
		if err := s.store.InsertOrderItems(ctx, orderItems); err != nil {
			return err
		}

		payment := &models.Payment{
			ID:      uuid.NewString(),
			OrderID: orderID,
			Method:  models.PaymentMethodCOD,
			Status:  models.PaymentStatusInitiated,
		}
		if err := s.store.InsertPayment(ctx, payment); err != nil {
			return err
		}

		return s.store.ClearCart(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}

	return &CommitResult{OrderID: orderID}, nil
}
