package models

const (
	AddressTypeShipping = "shipping"
	AddressTypeBilling  = "billing"
)

// Address belongs to a user. Checkout-captured addresses are stored with
// IsProfileVisible=false so order snapshots never show up in the profile
// address book and profile edits never alter historical orders.
type Address struct {
	ID               string `bson:"_id" json:"id"`
	UserID           string `bson:"userId" json:"userId"`
	Type             string `bson:"type" json:"type"`
	Line1            string `bson:"line1" json:"line1"`
	Line2            string `bson:"line2,omitempty" json:"line2,omitempty"`
	City             string `bson:"city" json:"city"`
	State            string `bson:"state" json:"state"`
	Country          string `bson:"country" json:"country"`
	PostalCode       string `bson:"postalCode" json:"postalCode"`
	IsDefault        bool   `bson:"isDefault" json:"isDefault"`
	IsProfileVisible bool   `bson:"isProfileVisible" json:"isProfileVisible"`
}
