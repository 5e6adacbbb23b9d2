package catalog

import (
	"context"
	"errors"
	"testing"
)

type fakeStore struct {
	variants map[string]bool
	defaults map[string]string
	err      error
}

func (f *fakeStore) VariantExists(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if f.variants[id] {
		return nil
	}
	return ErrNotFound
}

func (f *fakeStore) DefaultVariantID(ctx context.Context, productID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if id, ok := f.defaults[productID]; ok {
		return id, nil
	}
	return "", ErrNotFound
}

func TestResolveVariantIDPassesThrough(t *testing.T) {
	r := NewResolver(&fakeStore{variants: map[string]bool{"var-1": true}})

	got, err := r.Resolve(context.Background(), "var-1")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "var-1" {
		t.Fatalf("expected var-1, got %q", got)
	}
}

func TestResolveProductIDFallsBackToDefaultVariant(t *testing.T) {
	r := NewResolver(&fakeStore{
		variants: map[string]bool{"var-1": true},
		defaults: map[string]string{"prod-1": "var-9"},
	})

	got, err := r.Resolve(context.Background(), "prod-1")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "var-9" {
		t.Fatalf("expected var-9, got %q", got)
	}
}

func TestResolveUnknownRefReturnsNotFound(t *testing.T) {
	r := NewResolver(&fakeStore{})

	if _, err := r.Resolve(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveEmptyRefReturnsNotFound(t *testing.T) {
	r := NewResolver(&fakeStore{variants: map[string]bool{"": true}})

	if _, err := r.Resolve(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty ref, got %v", err)
	}
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("connection reset")
	r := NewResolver(&fakeStore{err: storeErr})

	if _, err := r.Resolve(context.Background(), "var-1"); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}
