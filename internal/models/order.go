package models

import "time"

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// ValidOrderStatus reports whether s is one of the persisted order states.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is created exactly once per confirmed payment session. TotalAmount
// and the address references are frozen at creation time.
type Order struct {
	ID                string    `bson:"_id" json:"id"`
	UserID            string    `bson:"userId" json:"userId"`
	Status            string    `bson:"status" json:"status"`
	TotalAmount       float64   `bson:"totalAmount" json:"totalAmount"`
	ShippingAddressID string    `bson:"shippingAddressId" json:"shippingAddressId"`
	BillingAddressID  string    `bson:"billingAddressId" json:"billingAddressId"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
}

// OrderItem captures a purchased line. PriceAtPurchase is a snapshot of the
// unit price actually paid, independent of later catalog changes.
type OrderItem struct {
	ID               string  `bson:"_id" json:"id"`
	OrderID          string  `bson:"orderId" json:"orderId"`
	ProductVariantID string  `bson:"productVariantId" json:"productVariantId"`
	Quantity         int     `bson:"quantity" json:"quantity"`
	PriceAtPurchase  float64 `bson:"priceAtPurchase" json:"priceAtPurchase"`
}
