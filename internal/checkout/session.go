// Package checkout drives the storefront checkout: it holds the client-side
// session, sequences address, stock, pricing and payment, and never leaves a
// half-placed order behind.
package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/storefront/internal/address"
	"github.com/MikeMC777/storefront/internal/apiclient"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/coupon"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/pricing"
	"github.com/MikeMC777/storefront/internal/validate"
)

type Contact struct {
	Name  string `json:"name"  binding:"required,max=120"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"required,phone"`
}

// Validate reports the first missing or malformed contact field as a
// "contact.<field>" error.
func (c Contact) Validate() error {
	c.Name, c.Email, c.Phone = strings.TrimSpace(c.Name), strings.TrimSpace(c.Email), strings.TrimSpace(c.Phone)
	return formError("contact", validate.Struct(c))
}

// Confirmation is what the confirmation view shows after a successful payment.
type Confirmation struct {
	OrderID     string            `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Items       []order.Item      `json:"items"`
	Pricing     pricing.Breakdown `json:"pricing"`
	PaymentID   string            `json:"payment_id"`
}

// Session is rebuilt from cart, addresses and coupon on every change; nothing
// here is persisted.
type Session struct {
	Cart         *cart.Cart
	Addresses    []address.Address
	RecentOrders []order.Order

	// exactly one of AddressID and NewAddress is in use
	AddressID  string
	NewAddress *address.Input

	Contact      Contact
	Coupon       *coupon.Result
	Pricing      pricing.Breakdown
	Confirmation *Confirmation
}

func (s *Session) addressSelected() bool {
	return s.AddressID != "" || s.NewAddress != nil
}

func (s *Session) subtotal() decimal.Decimal {
	if s.Cart == nil {
		return decimal.Zero
	}
	return s.Cart.Totals.Subtotal
}

func (s *Session) couponItems() []coupon.Item {
	if s.Cart == nil {
		return nil
	}
	var out []coupon.Item
	for _, it := range s.Cart.ActiveItems() {
		out = append(out, coupon.Item{ProductID: it.ProductID, Category: it.Category, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return out
}

type StepName string

const (
	StepShipping StepName = "shipping"
	StepPayment  StepName = "payment"
	StepReview   StepName = "review"
)

type StepState string

const (
	Upcoming StepState = "upcoming"
	Current  StepState = "current"
	Complete StepState = "complete"
)

type Step struct {
	Name  StepName
	State StepState
}

// Steps derives the progress indicator from the session: the shipping step
// completes once an address is chosen, and every step is complete once an
// order exists.
func (s *Session) Steps() []Step {
	switch {
	case s.Confirmation != nil:
		return []Step{{StepShipping, Complete}, {StepPayment, Complete}, {StepReview, Complete}}
	case s.addressSelected():
		return []Step{{StepShipping, Complete}, {StepPayment, Current}, {StepReview, Upcoming}}
	default:
		return []Step{{StepShipping, Current}, {StepPayment, Upcoming}, {StepReview, Upcoming}}
	}
}

// Error is an inline checkout failure: Field names the form area (for
// example "contact.email", "address.city", "stock", "coupon", "payment") and
// Messages are ready to show.
type Error struct {
	Field    string
	Messages []string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, strings.Join(e.Messages, "; "))
}

func (e *Error) Unwrap() error { return e.Err }

func fieldError(field, msg string) *Error {
	return &Error{Field: field, Messages: []string{msg}}
}

// formError prefixes a validation failure with the form section; nil stays nil.
func formError(section string, err error) error {
	if err == nil {
		return nil
	}
	var fe *validate.FieldError
	if errors.As(err, &fe) {
		return &Error{Field: section + "." + fe.Field, Messages: []string{fe.Error()}, Err: err}
	}
	return inline(section, err)
}

// inline converts any failure into an *Error for field, keeping API messages.
func inline(field string, err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	var ae *apiclient.APIError
	if errors.As(err, &ae) {
		return &Error{Field: field, Messages: []string{ae.Message}, Err: err}
	}
	return &Error{Field: field, Messages: []string{"Something went wrong, please try again"}, Err: err}
}
