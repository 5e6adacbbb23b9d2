package cart

import (
	"testing"

	"backend/internal/models"
)

func TestMergeQuantitiesSumsSameVariant(t *testing.T) {
	existing := []models.CartItem{{ProductVariantID: "var-1", Quantity: 2}}
	incoming := []models.CartItem{{ProductVariantID: "var-1", Quantity: 3}}

	merged := mergeQuantities(existing, incoming)

	if len(merged) != 1 {
		t.Fatalf("expected one merged line, got %d", len(merged))
	}
	if merged[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", merged[0].Quantity)
	}
}

func TestMergeQuantitiesKeepsDistinctLines(t *testing.T) {
	existing := []models.CartItem{{ProductVariantID: "var-1", Quantity: 1}}
	incoming := []models.CartItem{{ProductVariantID: "var-2", Quantity: 4}}

	merged := mergeQuantities(existing, incoming)

	if len(merged) != 2 {
		t.Fatalf("expected two lines, got %d", len(merged))
	}
	if merged[0].ProductVariantID != "var-1" || merged[0].Quantity != 1 {
		t.Fatalf("existing line changed: %+v", merged[0])
	}
	if merged[1].ProductVariantID != "var-2" || merged[1].Quantity != 4 {
		t.Fatalf("incoming line wrong: %+v", merged[1])
	}
}

func TestMergeQuantitiesConsolidatesDuplicateIncoming(t *testing.T) {
	incoming := []models.CartItem{
		{ProductVariantID: "var-1", Quantity: 1},
		{ProductVariantID: "var-1", Quantity: 2},
	}

	merged := mergeQuantities(nil, incoming)

	if len(merged) != 1 {
		t.Fatalf("expected duplicate refs to consolidate, got %d lines", len(merged))
	}
	if merged[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", merged[0].Quantity)
	}
}

func TestMergeQuantitiesEmptyIncomingKeepsExisting(t *testing.T) {
	existing := []models.CartItem{
		{ProductVariantID: "var-1", Quantity: 2},
		{ProductVariantID: "var-2", Quantity: 1},
	}

	merged := mergeQuantities(existing, nil)

	if len(merged) != 2 {
		t.Fatalf("expected existing lines untouched, got %d", len(merged))
	}
	for i := range existing {
		if merged[i] != existing[i] {
			t.Fatalf("line %d changed: %+v", i, merged[i])
		}
	}
}
