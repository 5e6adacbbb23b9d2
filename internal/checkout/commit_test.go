package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend/internal/models"
	"backend/internal/payments"
)

func commitFixture() (*Service, *fakeStore, *fakeLedger, *fakeProvider) {
	store := newFakeStore()
	store.addVariant(
		models.Variant{ID: "var-1", ProductID: "prod-1", Price: 75, Stock: 10},
		models.Product{ID: "prod-1", Name: "Air Runner"},
	)
	store.addVariant(
		models.Variant{ID: "var-2", ProductID: "prod-2", Price: 100, Stock: 5},
		models.Product{ID: "prod-2", Name: "Court Low"},
	)

	ledger := newFakeLedger()
	ledger.stock["var-1"] = 10
	ledger.stock["var-2"] = 5

	provider := &fakeProvider{
		session: &payments.Session{
			ID:              "cs_test",
			PaymentStatus:   payments.PaymentStatusPaid,
			AmountTotal:     25000,
			PaymentIntentID: "pi_123",
			Metadata:        map[string]string{"userId": "user-1"},
			ShippingAddress: &payments.Address{Line1: "1 Main St", City: "Austin", State: "TX", Country: "US", PostalCode: "78701"},
		},
		lines: []payments.SessionLineItem{
			{Quantity: 2, AmountTotal: 15000, Metadata: map[string]string{"productVariantId": "var-1", "productId": "prod-1"}},
			{Quantity: 1, AmountTotal: 10000, Metadata: map[string]string{"productVariantId": "var-2", "productId": "prod-2"}},
		},
	}

	svc := NewService(store, provider, ledger, "https://shop.example.com")
	return svc, store, ledger, provider
}

func TestCommitSessionEndToEnd(t *testing.T) {
	svc, store, ledger, _ := commitFixture()

	result, err := svc.CommitSession(context.Background(), "cs_test")
	if err != nil {
		t.Fatalf("CommitSession failed: %v", err)
	}

	if len(store.orders) != 1 {
		t.Fatalf("expected one order, got %d", len(store.orders))
	}
	order := store.orders[0]
	if order.ID != result.OrderID {
		t.Fatalf("result order id %q does not match stored %q", result.OrderID, order.ID)
	}
	if order.Status != models.OrderStatusPaid {
		t.Fatalf("expected paid status, got %q", order.Status)
	}
	if order.TotalAmount != 250 {
		t.Fatalf("expected total 250, got %v", order.TotalAmount)
	}
	if order.UserID != "user-1" {
		t.Fatalf("expected user from session metadata, got %q", order.UserID)
	}

	if len(store.orderItems) != 2 {
		t.Fatalf("expected two order items, got %d", len(store.orderItems))
	}
	if store.orderItems[0].PriceAtPurchase != 75 || store.orderItems[0].Quantity != 2 {
		t.Fatalf("unexpected first item: %+v", store.orderItems[0])
	}
	if store.orderItems[1].PriceAtPurchase != 100 || store.orderItems[1].Quantity != 1 {
		t.Fatalf("unexpected second item: %+v", store.orderItems[1])
	}

	if ledger.committed["var-1"] != 2 || ledger.committed["var-2"] != 1 {
		t.Fatalf("unexpected stock decrements: %+v", ledger.committed)
	}

	if len(store.payments) != 1 {
		t.Fatalf("expected one payment record, got %d", len(store.payments))
	}
	payment := store.payments[0]
	if payment.TransactionID != "pi_123" || payment.Method != models.PaymentMethodStripe || payment.Status != models.PaymentStatusCompleted {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if payment.PaidAt == nil {
		t.Fatal("expected paidAt set")
	}

	if len(store.cleared) != 1 || store.cleared[0] != "user-1" {
		t.Fatalf("expected cart cleared for user-1, got %+v", store.cleared)
	}
}

func TestCommitSessionSnapshotsAddresses(t *testing.T) {
	svc, store, _, _ := commitFixture()

	if _, err := svc.CommitSession(context.Background(), "cs_test"); err != nil {
		t.Fatalf("CommitSession failed: %v", err)
	}

	if len(store.addresses) != 2 {
		t.Fatalf("expected shipping and billing snapshots, got %d", len(store.addresses))
	}
	for _, address := range store.addresses {
		if address.IsProfileVisible {
			t.Fatalf("snapshot leaked into profile address book: %+v", address)
		}
		if address.Line1 != "1 Main St" {
			t.Fatalf("expected billing to fall back to shipping source, got %+v", address)
		}
	}

	order := store.orders[0]
	if order.ShippingAddressID == "" || order.BillingAddressID == "" || order.ShippingAddressID == order.BillingAddressID {
		t.Fatalf("expected distinct address references, got %+v", order)
	}
}

func TestCommitSessionUnpaidNoSideEffects(t *testing.T) {
	svc, store, ledger, provider := commitFixture()
	provider.session.PaymentStatus = "unpaid"

	_, err := svc.CommitSession(context.Background(), "cs_test")
	if !errors.Is(err, ErrPaymentNotConfirmed) {
		t.Fatalf("expected ErrPaymentNotConfirmed, got %v", err)
	}

	if len(store.orders) != 0 || len(store.payments) != 0 || len(store.cleared) != 0 {
		t.Fatal("expected no side effects for unpaid session")
	}
	if len(ledger.committed) != 0 {
		t.Fatalf("expected no stock decrements, got %+v", ledger.committed)
	}
}

func TestCommitSessionIdempotent(t *testing.T) {
	svc, store, ledger, _ := commitFixture()

	first, err := svc.CommitSession(context.Background(), "cs_test")
	if err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	second, err := svc.CommitSession(context.Background(), "cs_test")
	if err != nil {
		t.Fatalf("second commit failed: %v", err)
	}

	if first.OrderID != second.OrderID {
		t.Fatalf("expected same order id, got %q and %q", first.OrderID, second.OrderID)
	}
	if len(store.orders) != 1 || len(store.payments) != 1 {
		t.Fatalf("expected no duplicate inserts, got %d orders %d payments", len(store.orders), len(store.payments))
	}
	if ledger.committed["var-1"] != 2 {
		t.Fatalf("expected stock decremented once, got %+v", ledger.committed)
	}
}

func TestCommitSessionDuplicateInsertRace(t *testing.T) {
	svc, store, _, _ := commitFixture()

	// The pre-check sees nothing, the insert loses the unique-index race,
	// and the follow-up lookup returns the winner's order.
	store.racePayment = &models.Payment{ID: "pay-x", OrderID: "order-winner", TransactionID: "pi_123"}

	result, err := svc.CommitSession(context.Background(), "cs_test")
	if err != nil {
		t.Fatalf("expected race to resolve to winner's order, got %v", err)
	}
	if result.OrderID != "order-winner" {
		t.Fatalf("expected winner's order id, got %q", result.OrderID)
	}
	if len(store.orders) != 0 {
		t.Fatalf("expected losing transaction rolled back, got %+v", store.orders)
	}
}

func TestCommitSessionSkipsLinesWithoutMetadata(t *testing.T) {
	svc, store, _, provider := commitFixture()
	provider.lines = append(provider.lines, payments.SessionLineItem{Quantity: 1, AmountTotal: 500})

	if _, err := svc.CommitSession(context.Background(), "cs_test"); err != nil {
		t.Fatalf("CommitSession failed: %v", err)
	}

	if len(store.orderItems) != 2 {
		t.Fatalf("expected metadata-less line skipped, got %d items", len(store.orderItems))
	}
}

func TestCommitSessionStockShortfallDoesNotFailCommit(t *testing.T) {
	svc, store, ledger, _ := commitFixture()
	ledger.stock["var-1"] = 1

	// Payment is already captured; the shortfall is logged and the order
	// still records the purchased line.
	result, err := svc.CommitSession(context.Background(), "cs_test")
	if err != nil {
		t.Fatalf("CommitSession failed: %v", err)
	}
	if len(store.orders) != 1 || store.orders[0].ID != result.OrderID {
		t.Fatalf("expected order recorded, got %+v", store.orders)
	}
	if len(store.orderItems) != 2 {
		t.Fatalf("expected both lines recorded, got %d", len(store.orderItems))
	}
	if ledger.committed["var-1"] != 0 {
		t.Fatalf("expected no partial decrement for short line, got %+v", ledger.committed)
	}
	if ledger.committed["var-2"] != 1 {
		t.Fatalf("expected other line decremented, got %+v", ledger.committed)
	}
}

func TestCommitSessionRejectsMissingPaymentIntent(t *testing.T) {
	svc, store, ledger, provider := commitFixture()
	provider.session.PaymentIntentID = ""

	// Without the payment-intent id there is no idempotency key; repeated
	// calls would mint a fresh unkeyed order each time.
	for i := 0; i < 2; i++ {
		if _, err := svc.CommitSession(context.Background(), "cs_test"); err == nil {
			t.Fatal("expected paid session without payment intent to be rejected")
		}
	}

	if len(store.orders) != 0 || len(store.payments) != 0 || len(store.cleared) != 0 {
		t.Fatalf("expected no side effects, got %d orders %d payments %d clears",
			len(store.orders), len(store.payments), len(store.cleared))
	}
	if len(ledger.committed) != 0 {
		t.Fatalf("expected no stock decrements, got %+v", ledger.committed)
	}
}

func TestCommitSessionMissingUserMetadata(t *testing.T) {
	svc, store, _, provider := commitFixture()
	provider.session.Metadata = map[string]string{}

	if _, err := svc.CommitSession(context.Background(), "cs_test"); err == nil {
		t.Fatal("expected error for session without user id")
	}
	if len(store.orders) != 0 {
		t.Fatal("expected no order for session without user id")
	}
}

func TestCommitSessionUsesInjectedClock(t *testing.T) {
	svc, store, _, _ := commitFixture()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if _, err := svc.CommitSession(context.Background(), "cs_test"); err != nil {
		t.Fatalf("CommitSession failed: %v", err)
	}

	if !store.orders[0].CreatedAt.Equal(fixed) {
		t.Fatalf("expected order timestamp %v, got %v", fixed, store.orders[0].CreatedAt)
	}
	if !store.payments[0].PaidAt.Equal(fixed) {
		t.Fatalf("expected paidAt %v, got %v", fixed, store.payments[0].PaidAt)
	}
}
