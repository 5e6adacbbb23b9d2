package checkout

import (
	"context"

	"backend/internal/models"
)

// Store is the persistence surface checkout needs. The Mongo implementation
// lives in mongo.go; tests use an in-memory fake.
type Store interface {
	// ResolveVariantRef maps a variant-or-product ref to a variant id.
	// Returns catalog.ErrNotFound for unresolvable refs.
	ResolveVariantRef(ctx context.Context, ref string) (string, error)
	// VariantWithProduct loads the authoritative variant record and its
	// product. Returns catalog.ErrNotFound when either is missing.
	VariantWithProduct(ctx context.Context, variantID string) (*models.Variant, *models.Product, error)
	// CouponByCode returns ErrCouponNotFound when no coupon has the code.
	CouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	// DefaultShippingAddress returns the user's preferred profile-visible
	// shipping address, or (nil, nil) when none is saved.
	DefaultShippingAddress(ctx context.Context, userID string) (*models.Address, error)
	// PaymentByTransactionID returns (nil, nil) when no payment references
	// the transaction id.
	PaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)

	InsertAddress(ctx context.Context, address *models.Address) error
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderItems(ctx context.Context, items []models.OrderItem) error
	// InsertPayment returns ErrDuplicateTransaction when the unique
	// transactionId constraint rejects the insert.
	InsertPayment(ctx context.Context, payment *models.Payment) error
	ClearCart(ctx context.Context, userID string) error

	// WithTransaction runs fn in one logical unit of work; every write fn
	// makes through ctx commits or rolls back together.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
