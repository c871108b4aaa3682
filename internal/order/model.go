package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/storefront/internal/address"
	"github.com/MikeMC777/storefront/internal/pricing"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCanceled  Status = "canceled"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCanceled},
	StatusPaid:    {StatusShipped, StatusCanceled},
	StatusShipped: {StatusDelivered},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}

// CanTransition reports whether an order in s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Item is the snapshot of a cart line at the time the order was placed.
type Item struct {
	ProductID  string          `json:"product_id"`
	VariantSKU string          `json:"variant_sku"`
	Title      string          `json:"title"`
	Size       string          `json:"size,omitempty"`
	Color      string          `json:"color,omitempty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// Order is immutable once created except for Status.
type Order struct {
	ID              string            `json:"id"`
	OrderNumber     string            `json:"order_number"`
	UserID          string            `json:"user_id"`
	Status          Status            `json:"status"`
	Items           []Item            `json:"items"`
	Pricing         pricing.Breakdown `json:"pricing"`
	ShippingAddress address.Address   `json:"shipping_address"`
	PaymentRef      string            `json:"payment_ref,omitempty"`
	CouponCode      string            `json:"coupon_code,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewOrderNumber gives a human friendly reference such as ORD-20261015-3F9A12BC.
func NewOrderNumber(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(id[:8]))
}

// UpdateStatusRequest payload for PUT /admin/orders/{id}/status.
// swagger:model UpdateStatusRequest
type UpdateStatusRequest struct {
	Status Status `json:"status" example:"shipped"`
}
