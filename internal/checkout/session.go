// Package checkout converts a validated cart into a provider-hosted payment
// session and, on the async return leg, commits the confirmed session into an
// order exactly once.
package checkout

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"backend/internal/catalog"
	"backend/internal/models"
	"backend/internal/payments"
	"backend/internal/stock"
)

// Identity is the opaque current-user view handed in by the auth middleware.
type Identity struct {
	ID    string
	Email string
	Name  string
}

type Service struct {
	store    Store
	provider payments.Provider
	ledger   stock.Ledger
	appURL   string
	now      func() time.Time
}

func NewService(store Store, provider payments.Provider, ledger stock.Ledger, appURL string) *Service {
	return &Service{
		store:    store,
		provider: provider,
		ledger:   ledger,
		appURL:   appURL,
		now:      time.Now,
	}
}

// CreateSession builds a provider checkout session from the submitted items.
// Prices are re-derived from the persisted variant records; anything the
// client claims about prices is ignored. Unresolvable items are dropped,
// coupon problems abort the whole checkout.
func (s *Service) CreateSession(ctx context.Context, user Identity, items []CartItemInput, couponCode string) (string, error) {
	if user.ID == "" {
		return "", ErrAuthRequired
	}
	if len(items) == 0 {
		return "", ErrEmptyCart
	}

	lineItems := make([]payments.LineItem, 0, len(items))
	for _, item := range items {
		variantID, err := s.store.ResolveVariantRef(ctx, item.ProductVariantID)
		if errors.Is(err, catalog.ErrNotFound) {
			log.Printf("[CHECKOUT] [WARN] skipping unresolvable ref %q", item.ProductVariantID)
			continue
		}
		if err != nil {
			return "", err
		}

		variant, product, err := s.store.VariantWithProduct(ctx, variantID)
		if errors.Is(err, catalog.ErrNotFound) {
			log.Printf("[CHECKOUT] [WARN] variant %q vanished during pricing, skipping", variantID)
			continue
		}
		if err != nil {
			return "", err
		}

		lineItems = append(lineItems, payments.LineItem{
			Name:        product.Name,
			Description: variant.SKU,
			UnitAmount:  int64(math.Round(variant.EffectivePrice() * 100)),
			Quantity:    int64(item.Quantity),
			Metadata: map[string]string{
				"productVariantId": variantID,
				"productId":        variant.ProductID,
			},
		})
	}

	if len(lineItems) == 0 {
		return "", ErrNoValidItems
	}

	// Customer management is best-effort; checkout proceeds without
	// pre-filled addresses if the provider call fails.
	customerID := ""
	if shipping, err := s.store.DefaultShippingAddress(ctx, user.ID); err != nil {
		log.Println("[CHECKOUT] [WARN] default address lookup failed:", err)
	} else {
		params := payments.CustomerParams{Email: user.Email, Name: user.Name}
		if shipping != nil {
			params.Shipping = &payments.Address{
				Line1:      shipping.Line1,
				Line2:      shipping.Line2,
				City:       shipping.City,
				State:      shipping.State,
				Country:    shipping.Country,
				PostalCode: shipping.PostalCode,
			}
		}
		if id, err := s.provider.EnsureCustomer(ctx, params); err != nil {
			log.Println("[CHECKOUT] [WARN] provider customer management failed:", err)
		} else {
			customerID = id
		}
	}

	providerCouponID := ""
	if couponCode != "" {
		result, err := s.ValidateCoupon(ctx, couponCode)
		if err != nil {
			return "", err
		}
		if !result.Valid {
			return "", &InvalidCouponError{Message: result.Message}
		}

		couponParams := payments.CouponParams{
			// Deterministic derived id makes discount creation idempotent.
			ID:   "COUPON_" + result.Coupon.ID,
			Name: result.Coupon.Code,
		}
		if result.Coupon.DiscountType == models.DiscountTypePercentage {
			couponParams.PercentOff = result.Coupon.DiscountValue
		} else {
			couponParams.AmountOff = int64(math.Round(result.Coupon.DiscountValue * 100))
		}
		providerCouponID, err = s.provider.EnsureCoupon(ctx, couponParams)
		if err != nil {
			log.Println("[CHECKOUT] [ERROR] provider coupon setup failed:", err)
			return "", &InvalidCouponError{Message: "Failed to apply coupon"}
		}
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutParams{
		LineItems:     lineItems,
		CustomerID:    customerID,
		CustomerEmail: user.Email,
		CouponID:      providerCouponID,
		SuccessURL:    s.appURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.appURL + "/checkout",
		Metadata:      map[string]string{"userId": user.ID},
	})
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

// CartItemInput is one submitted checkout line. Only the ref and quantity
// are trusted.
type CartItemInput struct {
	ProductVariantID string `json:"productVariantId" binding:"required"`
	Quantity         int    `json:"quantity" binding:"required,min=1"`
}
