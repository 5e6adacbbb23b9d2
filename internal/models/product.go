package models

import "time"

// Product is a catalog entry grouping one or more purchasable variants.
type Product struct {
	ID               string    `bson:"_id" json:"id"`
	Name             string    `bson:"name" json:"name"`
	Slug             string    `bson:"slug" json:"slug"`
	Description      string    `bson:"description,omitempty" json:"description,omitempty"`
	Brand            string    `bson:"brand,omitempty" json:"brand,omitempty"`
	Category         string    `bson:"category,omitempty" json:"category,omitempty"`
	Gender           string    `bson:"gender,omitempty" json:"gender,omitempty"`
	ImagePath        string    `bson:"imagePath,omitempty" json:"imagePath,omitempty"`
	DefaultVariantID string    `bson:"defaultVariantId,omitempty" json:"defaultVariantId,omitempty"`
	IsActive         bool      `bson:"isActive" json:"isActive"`
	IsDeleted        bool      `bson:"isDeleted" json:"isDeleted,omitempty"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
}

// Variant is the unit of sale: one color/size configuration of a product,
// carrying its own price and stock.
type Variant struct {
	ID        string    `bson:"_id" json:"id"`
	ProductID string    `bson:"productId" json:"productId"`
	SKU       string    `bson:"sku,omitempty" json:"sku,omitempty"`
	Color     string    `bson:"color,omitempty" json:"color,omitempty"`
	Size      string    `bson:"size,omitempty" json:"size,omitempty"`
	Price     float64   `bson:"price" json:"price"`
	SalePrice float64   `bson:"salePrice,omitempty" json:"salePrice"`
	Stock     int       `bson:"stock" json:"stock"`
	InStock   bool      `bson:"-" json:"inStock"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

func (v Variant) IsOnSale() bool {
	return v.SalePrice > 0 && v.SalePrice < v.Price
}

// EffectivePrice is the price a buyer actually pays: sale price when a valid
// sale is set, list price otherwise. Client-submitted prices are never used.
func (v Variant) EffectivePrice() float64 {
	if v.IsOnSale() {
		return v.SalePrice
	}
	return v.Price
}
