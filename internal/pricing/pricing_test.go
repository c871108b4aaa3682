package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute_FreeShippingAboveThreshold(t *testing.T) {
	b := DefaultRules().Compute(dec("600"), decimal.Zero, false)

	assert.True(t, b.Shipping.IsZero())
	assert.Equal(t, "108", b.Tax.String())
	assert.Equal(t, "708", b.Total.String())
}

func TestCompute_CouponDiscountBelowThreshold(t *testing.T) {
	b := DefaultRules().Compute(dec("300"), dec("30"), false)

	assert.Equal(t, "50", b.Shipping.String())
	assert.Equal(t, "54", b.Tax.String())
	assert.Equal(t, "30", b.Discount.String())
	assert.Equal(t, "374", b.Total.String())
}

func TestShipping_ThresholdIsExclusive(t *testing.T) {
	r := DefaultRules()
	assert.Equal(t, "50", r.Shipping(dec("500")).String())
	assert.True(t, r.Shipping(dec("500.01")).IsZero())
}

func TestCompute_FreeShippingCoupon(t *testing.T) {
	b := DefaultRules().Compute(dec("200"), decimal.Zero, true)

	assert.True(t, b.Shipping.IsZero())
	assert.Equal(t, "236", b.Total.String())
}

func TestTax_Rounds(t *testing.T) {
	r := DefaultRules()
	// 0.18 * 99 = 17.82
	assert.Equal(t, "18", r.Tax(dec("99")).String())
	// 0.18 * 25 = 4.5
	assert.Equal(t, "5", r.Tax(dec("25")).String())
}

func TestCompute_TotalNeverNegative(t *testing.T) {
	b := DefaultRules().Compute(dec("10"), dec("1000"), true)
	assert.True(t, b.Total.IsZero())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(70800), MinorUnits(dec("708")))
	assert.Equal(t, int64(37450), MinorUnits(dec("374.499")))
}
