package models

import "time"

// CartItem is a (variant, quantity) pair. Quantity is always >= 1; a line
// that would drop to zero is removed instead.
type CartItem struct {
	ProductVariantID string `bson:"productVariantId" json:"productVariantId"`
	Quantity         int    `bson:"quantity" json:"quantity"`
}

// Cart is the server-persisted cart for one user. Created lazily on the
// first mutation, never deleted, only emptied. GuestID is a schema extension
// point and is not populated by the current flows.
type Cart struct {
	ID        string     `bson:"_id" json:"id"`
	UserID    string     `bson:"userId,omitempty" json:"userId,omitempty"`
	GuestID   string     `bson:"guestId,omitempty" json:"guestId,omitempty"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
}
