package cartstore

import (
	"context"
	"errors"
	"log"
	"strconv"
)

var (
	ErrNotLoaded  = errors.New("cartstore: local persistence not loaded yet")
	ErrNoIdentity = errors.New("cartstore: no authenticated identity")
)

// SyncItem is the wire shape exchanged with the server cart during
// reconciliation.
type SyncItem struct {
	ProductVariantID string `json:"productVariantId"`
	Quantity         int    `json:"quantity"`
}

// ServerCart is the server half of the merge protocol. An empty item list
// requests fetch-only semantics.
type ServerCart interface {
	Sync(ctx context.Context, items []SyncItem) ([]SyncItem, error)
}

// Catalog resolves server refs back to display products for hydration.
// ProductAtIndex serves legacy numeric refs left over from seeded data; the
// shim is bounded-lifetime and goes away with the last legacy cart.
type Catalog interface {
	ProductByID(id string) (Product, bool)
	ProductAtIndex(index int) (Product, bool)
}

// Reconcile merges local cart state with the server cart on login. It runs
// once per authentication transition: subsequent calls for the same identity
// are no-ops until the identity is cleared.
//
// When this identity is the one recorded from the previous successful sync,
// local items are treated as a cache of server state and an empty merge
// payload is sent so quantities are not double-counted. A different identity
// merges the full local list; the server sums quantities per variant.
//
// If the server reports an empty cart while local state is non-empty, that is
// treated as server-side data loss, not a legitimate empty cart: the full
// local list is force-pushed and local state is kept.
//
// Any sync failure leaves local state untouched and marks the run complete so
// the session does not retry in a loop; the next fresh login retries.
func (s *Store) Reconcile(ctx context.Context, server ServerCart, catalog Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotLoaded
	}
	if s.userEmail == "" {
		return ErrNoIdentity
	}
	if s.synced {
		return nil
	}

	sameUser := s.lastSyncedUser == s.userEmail

	var payload []SyncItem
	if !sameUser {
		payload = s.syncItemsLocked()
	}

	serverItems, err := server.Sync(ctx, payload)
	if err != nil {
		log.Println("[CARTSTORE] [ERROR] cart sync failed:", err)
		s.synced = true
		return err
	}

	if len(serverItems) == 0 && len(s.items) > 0 {
		log.Println("[CARTSTORE] [WARN] server cart empty but local cart has items, force pushing")
		if _, err := server.Sync(ctx, s.syncItemsLocked()); err != nil {
			log.Println("[CARTSTORE] [ERROR] recovery sync failed:", err)
			s.synced = true
			return err
		}
		s.markSyncedLocked()
		return nil
	}

	s.items = hydrate(serverItems, catalog)
	s.saveItemsLocked()
	s.markSyncedLocked()
	return nil
}

func (s *Store) syncItemsLocked() []SyncItem {
	out := make([]SyncItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, SyncItem{ProductVariantID: item.Product.ID, Quantity: item.Qty})
	}
	return out
}

func (s *Store) markSyncedLocked() {
	s.lastSyncedUser = s.userEmail
	s.synced = true
	if err := s.persist.SaveLastSyncedUser(s.userEmail); err != nil {
		log.Println("[CARTSTORE] [WARN] failed to persist synced user:", err)
	}
}

// hydrate projects server line items back into display items. Legacy numeric
// refs fall back to a catalog seed index ("1" means the first product). When
// several server refs collapse onto one product, their quantities are summed
// into a single displayed line.
func hydrate(serverItems []SyncItem, catalog Catalog) []Item {
	index := make(map[string]int)
	items := make([]Item, 0, len(serverItems))

	for _, si := range serverItems {
		product, ok := catalog.ProductByID(si.ProductVariantID)
		if !ok {
			if legacy, err := strconv.Atoi(si.ProductVariantID); err == nil {
				if p, found := catalog.ProductAtIndex(legacy - 1); found {
					log.Printf("[CARTSTORE] [INFO] recovered legacy ref %q -> %q", si.ProductVariantID, p.ID)
					product, ok = p, true
				}
			}
		}
		if !ok {
			log.Printf("[CARTSTORE] [WARN] no product for server ref %q, dropping line", si.ProductVariantID)
			continue
		}

		if pos, exists := index[product.ID]; exists {
			items[pos].Qty += si.Quantity
			continue
		}
		index[product.ID] = len(items)
		items = append(items, Item{Product: product, Qty: si.Quantity})
	}
	return items
}
