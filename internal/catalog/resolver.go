// Package catalog resolves loosely-typed line-item identifiers to canonical
// variant ids. Callers may hold a variant id, a product id, or a stale
// reference from seeded/mock data; the resolver normalizes all of them.
package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("catalog: not found")

// Store is the read-only catalog lookup the resolver runs against.
type Store interface {
	// VariantExists reports whether id names a variant. Returns ErrNotFound
	// when it does not.
	VariantExists(ctx context.Context, id string) error
	// DefaultVariantID returns the representative variant for a product:
	// the product's designated default variant if set, otherwise the newest
	// variant. Returns ErrNotFound when the product does not exist or has
	// no variants.
	DefaultVariantID(ctx context.Context, productID string) (string, error)
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve maps ref to a variant id. A ref that is already a variant id is
// returned unchanged; a product id resolves to its representative variant.
// Product-level refs cannot select color/size; that loss is accepted for
// legacy/mock-data compatibility. Returns ErrNotFound when neither matches;
// batch callers skip the item rather than failing the whole operation.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", ErrNotFound
	}

	err := r.store.VariantExists(ctx, ref)
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	return r.store.DefaultVariantID(ctx, ref)
}
