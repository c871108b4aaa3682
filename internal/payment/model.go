package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/storefront/internal/address"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/pricing"
)

type AttemptStatus string

const (
	AttemptCreated AttemptStatus = "created"
	AttemptPaid    AttemptStatus = "paid"
	AttemptFailed  AttemptStatus = "failed"
)

// Snapshot freezes what the customer agreed to pay for when the gateway
// order was opened; the store order is built from it, not from the live cart.
type Snapshot struct {
	Items   []order.Item      `json:"items"`
	Pricing pricing.Breakdown `json:"pricing"`
	Address address.Address   `json:"address"`
}

// Attempt is one gateway order and its outcome.
type Attempt struct {
	GatewayOrderID string
	UserID         string
	Amount         decimal.Decimal
	Currency       string
	AddressID      string
	CouponCode     string
	Snapshot       Snapshot
	Status         AttemptStatus
	PaymentID      string
	OrderID        string
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateOrderRequest payload of POST /payments/create-order. Amount is the
// total the client displayed; it must match the server's own computation.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	Amount     decimal.Decimal `json:"amount"      example:"374"`
	Currency   string          `json:"currency"    example:"INR"`
	AddressID  string          `json:"address_id"`
	CouponCode string          `json:"coupon_code" example:"SAVE10"`
}

// CreateOrderResponse carries what the hosted overlay needs.
// swagger:model CreateOrderResponse
type CreateOrderResponse struct {
	OrderID string `json:"order_id"`
	Key     string `json:"key"`
	// minor units (paise)
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Pricing  pricing.Breakdown `json:"pricing"`
}

// VerifyRequest is the signed object the overlay hands back on success.
// swagger:model VerifyRequest
type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// swagger:model VerifyResponse
type VerifyResponse struct {
	Success bool         `json:"success"`
	Order   *order.Order `json:"order"`
}

// FailureRequest payload of POST /payments/failure.
// swagger:model FailureRequest
type FailureRequest struct {
	OrderID     string `json:"razorpay_order_id"`
	PaymentID   string `json:"razorpay_payment_id,omitempty"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (f FailureRequest) reason() string {
	for _, s := range []string{f.Description, f.Reason, f.Code} {
		if s != "" {
			return s
		}
	}
	return "unknown"
}
