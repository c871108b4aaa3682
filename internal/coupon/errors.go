package coupon

import "errors"

var (
	ErrInvalidCoupon      = errors.New("invalid coupon")
	ErrExpired            = errors.New("coupon expired")
	ErrBelowMinimumOrder  = errors.New("order amount below coupon minimum")
	ErrUsageLimitExceeded = errors.New("coupon usage limit exceeded")

	ErrNotFound      = errors.New("coupon not found")
	ErrAlreadyExists = errors.New("coupon already exists")
	// ErrInvalidInput wraps admin payload validation failures.
	ErrInvalidInput = errors.New("invalid coupon definition")
)

// RuleError is a business-rule rejection with a user-facing message. Its
// Kind is one of the sentinel errors above.
type RuleError struct {
	Kind error
	Msg  string
}

func (e *RuleError) Error() string { return e.Msg }
func (e *RuleError) Unwrap() error { return e.Kind }

func reject(kind error, msg string) error { return &RuleError{Kind: kind, Msg: msg} }

// Code maps a rejection to its wire code; "" for anything else.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCoupon):
		return "invalid_coupon"
	case errors.Is(err, ErrExpired):
		return "coupon_expired"
	case errors.Is(err, ErrBelowMinimumOrder):
		return "below_minimum_order"
	case errors.Is(err, ErrUsageLimitExceeded):
		return "usage_limit_exceeded"
	}
	return ""
}
