// Package pricing turns a cart subtotal and an applied discount into the
// checkout price breakdown.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Rules holds the store-wide shipping and tax policy.
type Rules struct {
	// shipping is waived when the subtotal is strictly above this amount
	FreeShippingAbove decimal.Decimal
	ShippingFee       decimal.Decimal
	TaxRate           decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		FreeShippingAbove: decimal.NewFromInt(500),
		ShippingFee:       decimal.NewFromInt(50),
		TaxRate:           decimal.RequireFromString("0.18"),
	}
}

type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

func (r Rules) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(r.FreeShippingAbove) {
		return decimal.Zero
	}
	return r.ShippingFee
}

// Tax is rounded to whole currency units, half away from zero.
func (r Rules) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(r.TaxRate).Round(0)
}

// Compute builds the breakdown. A negative discount is ignored and the total
// never drops below zero.
func (r Rules) Compute(subtotal, discount decimal.Decimal, freeShipping bool) Breakdown {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	shipping := r.Shipping(subtotal)
	if freeShipping {
		shipping = decimal.Zero
	}
	tax := r.Tax(subtotal)
	total := subtotal.Add(shipping).Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Breakdown{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Discount: discount,
		Total:    total,
	}
}

// MinorUnits converts an amount to the gateway's integer minor units (paise).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
