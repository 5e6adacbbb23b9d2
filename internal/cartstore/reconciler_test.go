package cartstore

import (
	"context"
	"errors"
	"testing"
)

type fakeServerCart struct {
	calls    [][]SyncItem
	response []SyncItem
	err      error
}

func (f *fakeServerCart) Sync(ctx context.Context, items []SyncItem) ([]SyncItem, error) {
	f.calls = append(f.calls, items)
	if f.err != nil {
		return nil, f.err
	}
	if len(items) == 0 {
		return f.response, nil
	}
	return items, nil
}

type fakeCatalog struct {
	byID  map[string]Product
	order []Product
}

func (f *fakeCatalog) ProductByID(id string) (Product, bool) {
	p, ok := f.byID[id]
	return p, ok
}

func (f *fakeCatalog) ProductAtIndex(index int) (Product, bool) {
	if index < 0 || index >= len(f.order) {
		return Product{}, false
	}
	return f.order[index], true
}

func catalogWith(products ...Product) *fakeCatalog {
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &fakeCatalog{byID: byID, order: products}
}

func TestReconcileRequiresLoadAndIdentity(t *testing.T) {
	s := NewStore(&fakePersistence{}, &fakeSyncer{})

	if err := s.Reconcile(context.Background(), &fakeServerCart{}, catalogWith()); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}

	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := s.Reconcile(context.Background(), &fakeServerCart{}, catalogWith()); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}

func TestReconcileSameUserSendsEmptyPayload(t *testing.T) {
	persist := &fakePersistence{
		items:          []Item{{Product: Product{ID: "var-1", Name: "Air Runner"}, Qty: 2}},
		lastSyncedUser: "buyer@example.com",
	}
	s := NewStore(persist, &fakeSyncer{})
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.SetUserEmail("buyer@example.com")

	server := &fakeServerCart{response: []SyncItem{{ProductVariantID: "var-1", Quantity: 2}}}
	catalog := catalogWith(Product{ID: "var-1", Name: "Air Runner"})

	if err := s.Reconcile(context.Background(), server, catalog); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if len(server.calls) != 1 || len(server.calls[0]) != 0 {
		t.Fatalf("expected one fetch-only call, got %+v", server.calls)
	}
	if items := s.Items(); len(items) != 1 || items[0].Qty != 2 {
		t.Fatalf("expected quantities preserved without doubling, got %+v", items)
	}
}

func TestReconcileNewUserSendsFullLocalList(t *testing.T) {
	persist := &fakePersistence{
		items:          []Item{{Product: Product{ID: "var-1", Name: "Air Runner"}, Qty: 2}},
		lastSyncedUser: "someone-else@example.com",
	}
	s := NewStore(persist, &fakeSyncer{})
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.SetUserEmail("buyer@example.com")

	server := &fakeServerCart{}
	catalog := catalogWith(Product{ID: "var-1", Name: "Air Runner"})

	if err := s.Reconcile(context.Background(), server, catalog); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if len(server.calls) != 1 {
		t.Fatalf("expected one sync call, got %d", len(server.calls))
	}
	if payload := server.calls[0]; len(payload) != 1 || payload[0].ProductVariantID != "var-1" || payload[0].Quantity != 2 {
		t.Fatalf("expected full local list in payload, got %+v", payload)
	}
	if persist.lastSyncedUser != "buyer@example.com" {
		t.Fatalf("expected synced user persisted, got %q", persist.lastSyncedUser)
	}
}

func TestReconcileIsOncePerIdentity(t *testing.T) {
	s := NewStore(&fakePersistence{}, &fakeSyncer{})
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.SetUserEmail("buyer@example.com")

	server := &fakeServerCart{}
	catalog := catalogWith()

	if err := s.Reconcile(context.Background(), server, catalog); err != nil {
		t.Fatalf("first Reconcile failed: %v", err)
	}
	if err := s.Reconcile(context.Background(), server, catalog); err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	if len(server.calls) != 1 {
		t.Fatalf("expected a single sync per identity, got %d calls", len(server.calls))
	}

	// Logout re-arms reconciliation for the next login.
	s.SetUserEmail("")
	s.SetUserEmail("buyer@example.com")
	if err := s.Reconcile(context.Background(), server, catalog); err != nil {
		t.Fatalf("post-login Reconcile failed: %v", err)
	}
	if len(server.calls) != 2 {
		t.Fatalf("expected reconciliation after re-login, got %d calls", len(server.calls))
	}
}

func TestReconcileForcePushesWhenServerEmpty(t *testing.T) {
	persist := &fakePersistence{
		items:          []Item{{Product: Product{ID: "var-1", Name: "Air Runner"}, Qty: 3}},
		lastSyncedUser: "buyer@example.com",
	}
	s := NewStore(persist, &fakeSyncer{})
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.SetUserEmail("buyer@example.com")

	// Same user means fetch-only, and the server answers with nothing.
	server := &fakeServerCart{response: nil}
	catalog := catalogWith(Product{ID: "var-1", Name: "Air Runner"})

	if err := s.Reconcile(context.Background(), server, catalog); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if len(server.calls) != 2 {
		t.Fatalf("expected fetch then recovery push, got %d calls", len(server.calls))
	}
	if recovery := server.calls[1]; len(recovery) != 1 || recovery[0].Quantity != 3 {
		t.Fatalf("expected full local list in recovery push, got %+v", recovery)
	}
	if items := s.Items(); len(items) != 1 || items[0].Qty != 3 {
		t.Fatalf("expected local items kept, got %+v", items)
	}
}

func TestReconcileFailureKeepsLocalAndStops(t *testing.T) {
	persist := &fakePersistence{
		items: []Item{{Product: Product{ID: "var-1", Name: "Air Runner"}, Qty: 2}},
	}
	s := NewStore(persist, &fakeSyncer{})
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.SetUserEmail("buyer@example.com")

	server := &fakeServerCart{err: errors.New("server down")}
	catalog := catalogWith(Product{ID: "var-1", Name: "Air Runner"})

	if err := s.Reconcile(context.Background(), server, catalog); err == nil {
		t.Fatal("expected sync error to propagate")
	}
	if items := s.Items(); len(items) != 1 {
		t.Fatalf("expected local items untouched after failure, got %+v", items)
	}

	// The failed run still completes; no retry loop within the session.
	server.err = nil
	if err := s.Reconcile(context.Background(), server, catalog); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(server.calls) != 1 {
		t.Fatalf("expected no further sync calls this session, got %d", len(server.calls))
	}
}

func TestHydrateRecoversLegacyNumericRefs(t *testing.T) {
	first := Product{ID: "var-1", Name: "Air Runner"}
	catalog := catalogWith(first, Product{ID: "var-2", Name: "Court Low"})

	items := hydrate([]SyncItem{{ProductVariantID: "1", Quantity: 2}}, catalog)

	if len(items) != 1 {
		t.Fatalf("expected one hydrated line, got %+v", items)
	}
	if items[0].Product.ID != "var-1" || items[0].Qty != 2 {
		t.Fatalf("expected legacy ref 1 to map to first product, got %+v", items[0])
	}
}

func TestHydrateConsolidatesCollidingRefs(t *testing.T) {
	first := Product{ID: "var-1", Name: "Air Runner"}
	catalog := catalogWith(first)

	// A canonical ref and a legacy numeric ref resolving to the same product
	// collapse into one line with summed quantity.
	items := hydrate([]SyncItem{
		{ProductVariantID: "var-1", Quantity: 2},
		{ProductVariantID: "1", Quantity: 1},
	}, catalog)

	if len(items) != 1 {
		t.Fatalf("expected colliding refs consolidated, got %+v", items)
	}
	if items[0].Qty != 3 {
		t.Fatalf("expected summed quantity 3, got %d", items[0].Qty)
	}
}

func TestHydrateDropsUnknownRefs(t *testing.T) {
	catalog := catalogWith(Product{ID: "var-1", Name: "Air Runner"})

	items := hydrate([]SyncItem{
		{ProductVariantID: "ghost", Quantity: 1},
		{ProductVariantID: "var-1", Quantity: 1},
	}, catalog)

	if len(items) != 1 || items[0].Product.ID != "var-1" {
		t.Fatalf("expected unknown ref dropped, got %+v", items)
	}
}
