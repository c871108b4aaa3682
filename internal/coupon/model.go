package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	Percentage   Type = "percentage"
	Fixed        Type = "fixed"
	FreeShipping Type = "free_shipping"
)

func (t Type) Valid() bool {
	switch t {
	case Percentage, Fixed, FreeShipping:
		return true
	}
	return false
}

type Coupon struct {
	Code           string              `json:"code"`
	Description    string              `json:"description,omitempty"`
	Type           Type                `json:"discount_type"`
	Value          decimal.Decimal     `json:"discount_value"`
	MaxDiscount    decimal.NullDecimal `json:"max_discount"`
	MinOrderAmount decimal.Decimal     `json:"min_order_amount"`
	ValidFrom      *time.Time          `json:"valid_from,omitempty"`
	ValidUntil     *time.Time          `json:"valid_until,omitempty"`
	// 0 means unlimited for both limits
	UsageLimit   int `json:"usage_limit"`
	UsedCount    int `json:"used_count"`
	PerUserLimit int `json:"per_user_limit"`
	// empty lists mean the coupon applies to the whole order
	ApplicableProducts   []string  `json:"applicable_products,omitempty"`
	ApplicableCategories []string  `json:"applicable_categories,omitempty"`
	Active               bool      `json:"active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Expired reports whether the validity window closed before now.
func (c *Coupon) Expired(now time.Time) bool {
	return c.ValidUntil != nil && now.After(*c.ValidUntil)
}

func (c *Coupon) restricted() bool {
	return len(c.ApplicableProducts) > 0 || len(c.ApplicableCategories) > 0
}

func (c *Coupon) appliesTo(it Item) bool {
	for _, id := range c.ApplicableProducts {
		if id == it.ProductID {
			return true
		}
	}
	for _, cat := range c.ApplicableCategories {
		if strings.EqualFold(cat, it.Category) {
			return true
		}
	}
	return false
}

// NormalizeCode is the lookup key for a user-typed coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Item is the slice of a cart line the evaluator needs.
type Item struct {
	ProductID string          `json:"product_id"`
	Category  string          `json:"category,omitempty"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// ValidateRequest payload of POST /coupons/validate.
// swagger:model ValidateRequest
type ValidateRequest struct {
	Code        string          `json:"code"         example:"SAVE10"`
	OrderAmount decimal.Decimal `json:"order_amount" example:"300"`
	Items       []Item          `json:"items"`
}

// AutoApplyRequest payload of POST /coupons/auto-apply.
// swagger:model AutoApplyRequest
type AutoApplyRequest struct {
	OrderAmount decimal.Decimal `json:"order_amount" example:"300"`
	Items       []Item          `json:"items"`
}

// Result is the outcome of applying a coupon to an order amount.
// swagger:model CouponResult
type Result struct {
	Code            string          `json:"code"`
	Type            Type            `json:"discount_type"`
	DiscountApplied decimal.Decimal `json:"discount_applied"`
	FinalAmount     decimal.Decimal `json:"final_amount"`
	FreeShipping    bool            `json:"free_shipping"`
}

// UpsertRequest payload of the admin create/update endpoints.
// swagger:model CouponUpsertRequest
type UpsertRequest struct {
	Code                 string              `json:"code"                  binding:"required,max=40"`
	Description          string              `json:"description"           binding:"max=500"`
	Type                 Type                `json:"discount_type"         binding:"required,oneof=percentage fixed free_shipping"`
	Value                decimal.Decimal     `json:"discount_value"        binding:"gte=0"`
	MaxDiscount          decimal.NullDecimal `json:"max_discount"          binding:"omitempty,gt=0"`
	MinOrderAmount       decimal.Decimal     `json:"min_order_amount"      binding:"gte=0"`
	ValidFrom            *time.Time          `json:"valid_from"`
	ValidUntil           *time.Time          `json:"valid_until"`
	UsageLimit           int                 `json:"usage_limit"           binding:"gte=0"`
	PerUserLimit         int                 `json:"per_user_limit"        binding:"gte=0"`
	ApplicableProducts   []string            `json:"applicable_products"`
	ApplicableCategories []string            `json:"applicable_categories"`
	Active               *bool               `json:"active"`
}
