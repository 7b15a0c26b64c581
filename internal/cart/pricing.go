package cart

import (
	"github.com/shopspring/decimal"

	"github.com/lubrihub/storefront-backend/pkg/config"
)

// Pricing holds the constants the summary is computed from.
type Pricing struct {
	TaxRate               decimal.Decimal
	DiscountRate          decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	Currency              string
}

func NewPricing(values config.PricingValues, currency string) Pricing {
	if currency == "" {
		currency = "KES"
	}
	return Pricing{
		TaxRate:               values.TaxRate,
		DiscountRate:          values.DiscountRate,
		FreeShippingThreshold: values.FreeShippingThreshold,
		FlatShippingFee:       values.FlatShippingFee,
		Currency:              currency,
	}
}

// Summarize derives the totals for items and refreshes each line total.
//
//	tax      = subtotal * tax rate
//	shipping = 0 for an empty cart or subtotal >= threshold, flat fee otherwise
//	discount = subtotal * discount rate
//	total    = subtotal + tax + shipping - discount
func (p Pricing) Summarize(items []Item) Summary {
	subtotal := decimal.Zero
	count := 0
	for i := range items {
		items[i].LineTotal = items[i].Package.Price.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		subtotal = subtotal.Add(items[i].LineTotal)
		count += items[i].Quantity
	}

	shipping := decimal.Zero
	if len(items) > 0 && subtotal.LessThan(p.FreeShippingThreshold) {
		shipping = p.FlatShippingFee
	}
	tax := subtotal.Mul(p.TaxRate)
	discount := subtotal.Mul(p.DiscountRate)

	return Summary{
		TotalItems:  count,
		Subtotal:    subtotal,
		Tax:         tax,
		ShippingFee: shipping,
		Discount:    discount,
		Total:       subtotal.Add(tax).Add(shipping).Sub(discount),
		Currency:    p.Currency,
	}
}
