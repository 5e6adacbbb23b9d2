package models

import "time"

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

type Coupon struct {
	ID            string     `bson:"_id" json:"id"`
	Code          string     `bson:"code" json:"code"`
	DiscountType  string     `bson:"discountType" json:"discountType"`
	DiscountValue float64    `bson:"discountValue" json:"discountValue"`
	ExpiresAt     *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	MaxUsage      int        `bson:"maxUsage" json:"maxUsage"`
	UsedCount     int        `bson:"usedCount" json:"usedCount"`
}
