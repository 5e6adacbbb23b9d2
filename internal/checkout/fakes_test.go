package checkout

import (
	"context"
	"errors"

	"backend/internal/catalog"
	"backend/internal/models"
	"backend/internal/payments"
	"backend/internal/stock"
)

/* =========================
   STORE FAKE
========================= */

type fakeStore struct {
	variants        map[string]*models.Variant
	products        map[string]*models.Product
	refs            map[string]string
	coupons         map[string]*models.Coupon
	defaultShipping map[string]*models.Address

	addresses  []*models.Address
	orders     []*models.Order
	orderItems []models.OrderItem
	payments   []*models.Payment
	cleared    []string

	// racePayment simulates a concurrent commit winning the unique index:
	// InsertPayment for its transaction id fails with ErrDuplicateTransaction
	// and only afterwards does the lookup reveal the winner's record.
	racePayment  *models.Payment
	raceRevealed bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		variants:        map[string]*models.Variant{},
		products:        map[string]*models.Product{},
		refs:            map[string]string{},
		coupons:         map[string]*models.Coupon{},
		defaultShipping: map[string]*models.Address{},
	}
}

func (f *fakeStore) addVariant(v models.Variant, p models.Product) {
	f.variants[v.ID] = &v
	f.products[p.ID] = &p
	f.refs[v.ID] = v.ID
	f.refs[p.ID] = v.ID
}

func (f *fakeStore) ResolveVariantRef(ctx context.Context, ref string) (string, error) {
	if id, ok := f.refs[ref]; ok {
		return id, nil
	}
	return "", catalog.ErrNotFound
}

func (f *fakeStore) VariantWithProduct(ctx context.Context, variantID string) (*models.Variant, *models.Product, error) {
	variant, ok := f.variants[variantID]
	if !ok {
		return nil, nil, catalog.ErrNotFound
	}
	product, ok := f.products[variant.ProductID]
	if !ok {
		return nil, nil, catalog.ErrNotFound
	}
	return variant, product, nil
}

func (f *fakeStore) CouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if coupon, ok := f.coupons[code]; ok {
		return coupon, nil
	}
	return nil, ErrCouponNotFound
}

func (f *fakeStore) DefaultShippingAddress(ctx context.Context, userID string) (*models.Address, error) {
	return f.defaultShipping[userID], nil
}

func (f *fakeStore) PaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	for _, p := range f.payments {
		if p.TransactionID == transactionID {
			return p, nil
		}
	}
	if f.racePayment != nil && f.raceRevealed && f.racePayment.TransactionID == transactionID {
		return f.racePayment, nil
	}
	return nil, nil
}

func (f *fakeStore) InsertAddress(ctx context.Context, address *models.Address) error {
	f.addresses = append(f.addresses, address)
	return nil
}

func (f *fakeStore) InsertOrder(ctx context.Context, order *models.Order) error {
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeStore) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	f.orderItems = append(f.orderItems, items...)
	return nil
}

func (f *fakeStore) InsertPayment(ctx context.Context, payment *models.Payment) error {
	if f.racePayment != nil && payment.TransactionID == f.racePayment.TransactionID {
		f.raceRevealed = true
		return ErrDuplicateTransaction
	}
	for _, existing := range f.payments {
		if existing.TransactionID != "" && existing.TransactionID == payment.TransactionID {
			return ErrDuplicateTransaction
		}
	}
	f.payments = append(f.payments, payment)
	return nil
}

func (f *fakeStore) ClearCart(ctx context.Context, userID string) error {
	f.cleared = append(f.cleared, userID)
	return nil
}

// WithTransaction snapshots the write state and restores it when fn fails,
// mirroring the rollback the real session gives us.
func (f *fakeStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	addresses := append([]*models.Address(nil), f.addresses...)
	orders := append([]*models.Order(nil), f.orders...)
	orderItems := append([]models.OrderItem(nil), f.orderItems...)
	payments := append([]*models.Payment(nil), f.payments...)
	cleared := append([]string(nil), f.cleared...)

	if err := fn(ctx); err != nil {
		f.addresses = addresses
		f.orders = orders
		f.orderItems = orderItems
		f.payments = payments
		f.cleared = cleared
		return err
	}
	return nil
}

/* =========================
   LEDGER FAKE
========================= */

type fakeLedger struct {
	stock     map[string]int
	committed map[string]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{stock: map[string]int{}, committed: map[string]int{}}
}

func (f *fakeLedger) Decrement(ctx context.Context, variantID string, quantity int) error {
	remaining, ok := f.stock[variantID]
	if !ok {
		return stock.ErrVariantNotFound
	}
	if remaining < quantity {
		return stock.ErrInsufficientStock
	}
	f.stock[variantID] = remaining - quantity
	f.committed[variantID] += quantity
	return nil
}

/* =========================
   PROVIDER FAKE
========================= */

type fakeProvider struct {
	session *payments.Session
	lines   []payments.SessionLineItem

	createdParams  *payments.CheckoutParams
	createErr      error
	customerErr    error
	couponErr      error
	couponParams   *payments.CouponParams
	customerCalled bool
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, params payments.CheckoutParams) (*payments.CheckoutSession, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdParams = &params
	return &payments.CheckoutSession{ID: "cs_test", URL: "https://pay.example.com/cs_test"}, nil
}

func (f *fakeProvider) RetrieveSession(ctx context.Context, sessionID string) (*payments.Session, error) {
	if f.session == nil || f.session.ID != sessionID {
		return nil, errors.New("no such session")
	}
	return f.session, nil
}

func (f *fakeProvider) SessionLineItems(ctx context.Context, sessionID string) ([]payments.SessionLineItem, error) {
	return f.lines, nil
}

func (f *fakeProvider) EnsureCustomer(ctx context.Context, params payments.CustomerParams) (string, error) {
	f.customerCalled = true
	if f.customerErr != nil {
		return "", f.customerErr
	}
	return "cus_test", nil
}

func (f *fakeProvider) EnsureCoupon(ctx context.Context, params payments.CouponParams) (string, error) {
	if f.couponErr != nil {
		return "", f.couponErr
	}
	f.couponParams = &params
	return params.ID, nil
}
