package checkout

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"backend/internal/models"
	"backend/internal/payments"
	"backend/internal/stock"
)

type CommitResult struct {
	OrderID string `json:"orderId"`
}

var (
	errMissingSessionUser = errors.New("checkout: no user id in session")
	errMissingTransaction = errors.New("checkout: paid session has no payment intent")
)

// CommitSession turns a confirmed provider session into a persisted order.
// The session id is the sole input; cart contents are never taken from the
// client at commit time. Safe to call repeatedly with the same id: the
// provider's payment-intent id keys a unique payment record, and a repeat
// call returns the existing order without re-inserting anything.
//
// An error return means the order state may be incomplete; callers must not
// clear the local cart or report success. This is distinct from
// ErrPaymentNotConfirmed, where no side effects happened at all.
func (s *Service) CommitSession(ctx context.Context, sessionID string) (*CommitResult, error) {
	if sessionID == "" {
		return nil, errors.New("checkout: session id required")
	}

	session, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.PaymentStatus != payments.PaymentStatusPaid {
		return nil, ErrPaymentNotConfirmed
	}

	userID := session.Metadata["userId"]
	if userID == "" {
		return nil, errMissingSessionUser
	}

	// The payment-intent id is the idempotency key; a paid session without
	// one cannot be committed safely, so it is rejected rather than recorded
	// unkeyed.
	transactionID := session.PaymentIntentID
	if transactionID == "" {
		return nil, errMissingTransaction
	}

	existing, err := s.store.PaymentByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Printf("[CHECKOUT] [INFO] session %s already committed as order %s", sessionID, existing.OrderID)
		return &CommitResult{OrderID: existing.OrderID}, nil
	}

	lines, err := s.provider.SessionLineItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	orderID := uuid.NewString()

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		shippingSource := session.ShippingAddress
		if shippingSource == nil {
			shippingSource = session.BillingAddress
		}
		billingSource := session.BillingAddress
		if billingSource == nil {
			billingSource = session.ShippingAddress
		}

		shippingAddress := snapshotAddress(userID, models.AddressTypeShipping, shippingSource)
		if err := s.store.InsertAddress(ctx, shippingAddress); err != nil {
			return err
		}
		billingAddress := snapshotAddress(userID, models.AddressTypeBilling, billingSource)
		if err := s.store.InsertAddress(ctx, billingAddress); err != nil {
			return err
		}

		order := &models.Order{
			ID:                orderID,
			UserID:            userID,
			Status:            models.OrderStatusPaid,
			TotalAmount:       float64(session.AmountTotal) / 100,
			ShippingAddressID: shippingAddress.ID,
			BillingAddressID:  billingAddress.ID,
			CreatedAt:         s.now(),
		}
		if err := s.store.InsertOrder(ctx, order); err != nil {
			return err
		}

		orderItems := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			variantID := line.Metadata["productVariantId"]
			if variantID == "" {
				log.Printf("[CHECKOUT] [WARN] session %s line without variant metadata, skipping", sessionID)
				continue
			}

			quantity := int(line.Quantity)
			if quantity < 1 {
				quantity = 1
			}

			orderItems = append(orderItems, models.OrderItem{
				ID:               uuid.NewString(),
				OrderID:          orderID,
				ProductVariantID: variantID,
				Quantity:         quantity,
				// Unit price comes from what was actually paid, never from
				// the current catalog price.
				PriceAtPurchase: float64(line.AmountTotal) / float64(quantity) / 100,
			})

			if err := s.ledger.Decrement(ctx, variantID, quantity); err != nil {
				if errors.Is(err, stock.ErrInsufficientStock) || errors.Is(err, stock.ErrVariantNotFound) {
					// Payment is already captured; record the order and let
					// fulfilment reconcile the shortfall.
					log.Printf("[CHECKOUT] [WARN] stock decrement skipped for %q: %v", variantID, err)
					continue
				}
				return err
			}
		}
		if err := s.store.InsertOrderItems(ctx, orderItems); err != nil {
			return err
		}

		paidAt := s.now()
		payment := &models.Payment{
			ID:            uuid.NewString(),
			OrderID:       orderID,
			Method:        models.PaymentMethodStripe,
			Status:        models.PaymentStatusCompleted,
			TransactionID: transactionID,
			PaidAt:        &paidAt,
		}
		if err := s.store.InsertPayment(ctx, payment); err != nil {
			return err
		}

		return s.store.ClearCart(ctx, userID)
	})
	if err != nil {
		// A concurrent commit for the same session won the unique-index
		// race; its order is the authoritative one.
		if errors.Is(err, ErrDuplicateTransaction) {
			if existing, lookupErr := s.store.PaymentByTransactionID(ctx, transactionID); lookupErr == nil && existing != nil {
				return &CommitResult{OrderID: existing.OrderID}, nil
			}
		}
		return nil, err
	}

	return &CommitResult{OrderID: orderID}, nil
}

func snapshotAddress(userID, addressType string, source *payments.Address) *models.Address {
	address := &models.Address{
		ID:               uuid.NewString(),
		UserID:           userID,
		Type:             addressType,
		IsDefault:        false,
		IsProfileVisible: false,
	}
	if source != nil {
		address.Line1 = source.Line1
		address.Line2 = source.Line2
		address.City = source.City
		address.State = source.State
		address.Country = source.Country
		address.PostalCode = source.PostalCode
	}
	return address
}
