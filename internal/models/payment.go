package models

import "time"

const (
	PaymentMethodStripe = "stripe"
	PaymentMethodCOD    = "cod"

	PaymentStatusInitiated = "initiated"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment is the one-per-order payment record. TransactionID holds the
// provider's payment-intent id and is the idempotency key for order commit
// (unique index, see database.EnsurePaymentIndexes).
type Payment struct {
	ID            string     `bson:"_id" json:"id"`
	OrderID       string     `bson:"orderId" json:"orderId"`
	Method        string     `bson:"method" json:"method"`
	Status        string     `bson:"status" json:"status"`
	TransactionID string     `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	PaidAt        *time.Time `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}
