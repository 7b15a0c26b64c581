package types

import "github.com/shopspring/decimal"

// ProductSnapshot freezes the catalogue fields shown on a cart line.
type ProductSnapshot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Category string  `json:"category"`
	Grade    *string `json:"grade,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

// PackageSnapshot freezes the purchasable unit of a product at add time.
// Price is per package.
type PackageSnapshot struct {
	ID       string          `json:"id"`
	SKU      string          `json:"sku"`
	Size     decimal.Decimal `json:"size"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
	WeightKG decimal.Decimal `json:"weight_kg"`
}

// CartLineSnapshot is a cart line frozen outside the live cart, either in a
// saved cart or in a checkout draft.
type CartLineSnapshot struct {
	ItemID    string          `json:"item_id"`
	ProductID string          `json:"product_id"`
	PackageID string          `json:"package_id"`
	Product   ProductSnapshot `json:"product"`
	Package   PackageSnapshot `json:"package"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is the package price times quantity.
func (l CartLineSnapshot) LineTotal() decimal.Decimal {
	return l.Package.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SummarySnapshot mirrors the derived cart totals at the moment they were frozen.
type SummarySnapshot struct {
	TotalItems  int             `json:"total_items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
}

// CartSnapshot is the cart content checkout charges for.
type CartSnapshot struct {
	CartID  string             `json:"cart_id"`
	Version int64              `json:"version"`
	Items   []CartLineSnapshot `json:"items"`
	Summary SummarySnapshot    `json:"summary"`
}
