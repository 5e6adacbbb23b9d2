// Package payments wraps the hosted payment provider behind a narrow port so
// checkout and order commit stay testable without network access.
package payments

import "context"

const PaymentStatusPaid = "paid"

type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	Country    string
	PostalCode string
}

// LineItem is a priced line sent to the provider. UnitAmount is in minor
// units (cents). Metadata travels to the provider and comes back on the
// session's line items; the variant/product ids ride there.
type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
	Metadata    map[string]string
}

type CheckoutParams struct {
	LineItems     []LineItem
	CustomerID    string
	CustomerEmail string
	CouponID      string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Session is the provider's view of a finished (or abandoned) checkout.
type Session struct {
	ID              string
	PaymentStatus   string
	AmountTotal     int64
	PaymentIntentID string
	Metadata        map[string]string
	ShippingName    string
	ShippingAddress *Address
	BillingAddress  *Address
}

// SessionLineItem is one paid line retrieved back from the provider.
// AmountTotal is the total paid for the line in minor units.
type SessionLineItem struct {
	Quantity    int64
	AmountTotal int64
	Metadata    map[string]string
}

type CustomerParams struct {
	Email    string
	Name     string
	Shipping *Address
}

// CouponParams creates a provider-side discount. ID is the deterministic
// derived id ("COUPON_<coupon id>") used for get-or-create.
type CouponParams struct {
	ID         string
	Name       string
	PercentOff float64
	AmountOff  int64
}

type Provider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*Session, error)
	SessionLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error)
	// EnsureCustomer finds or creates the provider customer for an email and
	// returns its id. Callers treat failures as non-fatal.
	EnsureCustomer(ctx context.Context, params CustomerParams) (string, error)
	// EnsureCoupon gets or creates the provider discount object keyed by
	// params.ID. "Already exists" on create counts as success.
	EnsureCoupon(ctx context.Context, params CouponParams) (string, error)
}
