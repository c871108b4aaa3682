package coupon

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate applies c to an order of req.OrderAmount. userUses is how many
// times the requesting user has already redeemed c. Evaluate has no side
// effects; usage is only recorded when an order is placed.
func Evaluate(c *Coupon, req ValidateRequest, userUses int, now time.Time) (Result, error) {
	if !c.Active {
		return Result{}, reject(ErrInvalidCoupon, fmt.Sprintf("coupon %s is not active", c.Code))
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return Result{}, reject(ErrInvalidCoupon, fmt.Sprintf("coupon %s is not valid yet", c.Code))
	}
	if c.Expired(now) {
		return Result{}, reject(ErrExpired, fmt.Sprintf("coupon %s has expired", c.Code))
	}
	amount := req.OrderAmount
	if amount.LessThan(c.MinOrderAmount) {
		return Result{}, reject(ErrBelowMinimumOrder,
			fmt.Sprintf("add %s more to use coupon %s (minimum order %s)",
				c.MinOrderAmount.Sub(amount).StringFixed(2), c.Code, c.MinOrderAmount.StringFixed(2)))
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return Result{}, reject(ErrUsageLimitExceeded, fmt.Sprintf("coupon %s is fully redeemed", c.Code))
	}
	if c.PerUserLimit > 0 && userUses >= c.PerUserLimit {
		return Result{}, reject(ErrUsageLimitExceeded, fmt.Sprintf("you have already used coupon %s", c.Code))
	}

	base := amount
	if c.restricted() {
		base = decimal.Zero
		for _, it := range req.Items {
			if c.appliesTo(it) {
				base = base.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
			}
		}
		if base.IsZero() {
			return Result{}, reject(ErrInvalidCoupon, fmt.Sprintf("coupon %s does not apply to the items in your cart", c.Code))
		}
		base = decimal.Min(base, amount)
	}

	res := Result{Code: c.Code, Type: c.Type}
	discount := decimal.Zero
	switch c.Type {
	case Percentage:
		discount = base.Mul(c.Value).Div(hundred)
		if c.MaxDiscount.Valid && discount.GreaterThan(c.MaxDiscount.Decimal) {
			discount = c.MaxDiscount.Decimal
		}
	case Fixed:
		discount = c.Value
	case FreeShipping:
		res.FreeShipping = true
	default:
		return Result{}, reject(ErrInvalidCoupon, fmt.Sprintf("coupon %s has an unknown type", c.Code))
	}
	discount = decimal.Min(discount, base).Round(2)
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	res.DiscountApplied = discount
	res.FinalAmount = amount.Sub(discount)
	return res, nil
}

type candidate struct {
	coupon *Coupon
	result Result
}

// Best evaluates every coupon and returns the one granting the largest
// discount. Ties prefer free shipping, then the coupon that expires first,
// then the lexically smallest code. ok is false when nothing applies.
func Best(coupons []Coupon, req AutoApplyRequest, uses map[string]int, now time.Time) (Result, bool) {
	var cands []candidate
	for i := range coupons {
		c := &coupons[i]
		res, err := Evaluate(c, ValidateRequest{Code: c.Code, OrderAmount: req.OrderAmount, Items: req.Items}, uses[c.Code], now)
		if err != nil {
			continue
		}
		cands = append(cands, candidate{coupon: c, result: res})
	}
	if len(cands) == 0 {
		return Result{}, false
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if cmp := a.result.DiscountApplied.Cmp(b.result.DiscountApplied); cmp != 0 {
			return cmp > 0
		}
		if a.result.FreeShipping != b.result.FreeShipping {
			return a.result.FreeShipping
		}
		if ea, eb := a.coupon.ValidUntil, b.coupon.ValidUntil; ea != nil || eb != nil {
			switch {
			case eb == nil:
				return true
			case ea == nil:
				return false
			case !ea.Equal(*eb):
				return ea.Before(*eb)
			}
		}
		return a.coupon.Code < b.coupon.Code
	})
	return cands[0].result, true
}
