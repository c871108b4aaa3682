package checkout

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MikeMC777/storefront/internal/address"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/coupon"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/pricing"
	"github.com/MikeMC777/storefront/internal/stock"
)

// API is the part of the storefront API the checkout page talks to.
type API interface {
	PaymentAPI
	GetCart(ctx context.Context) (*cart.Cart, error)
	UpdateCartItem(ctx context.Context, itemID string, qty int) (*cart.Cart, error)
	RemoveCartItem(ctx context.Context, itemID string) (*cart.Cart, error)
	ValidateCart(ctx context.Context) (stock.Result, error)
	ValidateCoupon(ctx context.Context, req coupon.ValidateRequest) (coupon.Result, error)
	AutoApplyCoupon(ctx context.Context, req coupon.AutoApplyRequest) (*coupon.Result, error)
	ListAddresses(ctx context.Context) ([]address.Address, error)
	CreateAddress(ctx context.Context, in address.Input) (*address.Address, error)
	ListOrders(ctx context.Context, limit int) ([]order.Order, error)
}

// Orchestrator owns one checkout session. It is not safe for concurrent use;
// every step of PlaceOrder waits for the previous one.
type Orchestrator struct {
	api      API
	bridge   *Bridge
	rules    pricing.Rules
	currency string
	session  Session
}

func New(api API, overlay Overlay, rules pricing.Rules, currency string) *Orchestrator {
	if currency == "" {
		currency = "INR"
	}
	return &Orchestrator{api: api, bridge: NewBridge(api, overlay), rules: rules, currency: currency}
}

// Session returns the current state.
func (o *Orchestrator) Session() *Session { return &o.session }

// retryOnce runs fn and, when it fails and ctx is still live, runs it again.
func retryOnce(ctx context.Context, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Err(err).Msg("[checkout] retrying fetch")
	return fn(ctx)
}

// Load fetches cart, addresses and recent orders concurrently, each retried
// once. Recent orders are informational; failing to load them is not fatal.
func (o *Orchestrator) Load(ctx context.Context) error {
	var (
		c      *cart.Cart
		addrs  []address.Address
		recent []order.Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return retryOnce(gctx, func(ctx context.Context) (err error) {
			c, err = o.api.GetCart(ctx)
			return err
		})
	})
	g.Go(func() error {
		return retryOnce(gctx, func(ctx context.Context) (err error) {
			addrs, err = o.api.ListAddresses(ctx)
			return err
		})
	})
	g.Go(func() error {
		err := retryOnce(gctx, func(ctx context.Context) (err error) {
			recent, err = o.api.ListOrders(ctx, 5)
			return err
		})
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("[checkout] recent orders unavailable")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return inline("load", err)
	}

	o.session.Cart = c
	o.session.Addresses = addrs
	o.session.RecentOrders = recent
	if o.session.AddressID == "" && o.session.NewAddress == nil {
		for _, a := range addrs {
			if a.IsDefault {
				o.session.AddressID = a.ID
				break
			}
		}
	}
	o.recompute()
	return nil
}

// recompute reprices the session from the cart subtotal and applied coupon.
func (o *Orchestrator) recompute() {
	discount, free := decimal.Zero, false
	if c := o.session.Coupon; c != nil {
		discount, free = c.DiscountApplied, c.FreeShipping
	}
	o.session.Pricing = o.rules.Compute(o.session.subtotal(), discount, free)
}

// SelectAddress picks a saved address.
func (o *Orchestrator) SelectAddress(id string) error {
	for _, a := range o.session.Addresses {
		if a.ID == id {
			o.session.AddressID = id
			o.session.NewAddress = nil
			return nil
		}
	}
	return fieldError("address", "Please choose one of your saved addresses")
}

// UseNewAddress switches the session to a new-address draft.
func (o *Orchestrator) UseNewAddress(draft address.Input) {
	o.session.NewAddress = &draft
	o.session.AddressID = ""
}

func (o *Orchestrator) SetContact(c Contact) { o.session.Contact = c }

// ApplyCoupon validates code against the current cart.
func (o *Orchestrator) ApplyCoupon(ctx context.Context, code string) (*coupon.Result, error) {
	res, err := o.api.ValidateCoupon(ctx, coupon.ValidateRequest{
		Code:        code,
		OrderAmount: o.session.subtotal(),
		Items:       o.session.couponItems(),
	})
	if err != nil {
		return nil, inline("coupon", err)
	}
	o.session.Coupon = &res
	o.recompute()
	return &res, nil
}

// AutoApplyCoupon applies the best coupon the server finds; nil when none applies.
func (o *Orchestrator) AutoApplyCoupon(ctx context.Context) (*coupon.Result, error) {
	res, err := o.api.AutoApplyCoupon(ctx, coupon.AutoApplyRequest{
		OrderAmount: o.session.subtotal(),
		Items:       o.session.couponItems(),
	})
	if err != nil {
		return nil, inline("coupon", err)
	}
	if res != nil {
		o.session.Coupon = res
		o.recompute()
	}
	return res, nil
}

func (o *Orchestrator) RemoveCoupon() {
	o.session.Coupon = nil
	o.recompute()
}

// PlaceOrderInput overrides the session's contact and address choice when set.
type PlaceOrderInput struct {
	Contact    *Contact
	AddressID  string
	NewAddress *address.Input
}

// PlaceOrder runs the checkout sequence: validate the form, persist a new
// address, revalidate stock (with one automatic recovery pass), reprice and
// pay. Any failure returns an *Error and leaves the session without a
// confirmation.
func (o *Orchestrator) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Confirmation, error) {
	s := &o.session
	if in.Contact != nil {
		s.Contact = *in.Contact
	}
	switch {
	case in.NewAddress != nil:
		o.UseNewAddress(*in.NewAddress)
	case in.AddressID != "":
		if err := o.SelectAddress(in.AddressID); err != nil {
			return nil, err
		}
	}

	if err := s.Contact.Validate(); err != nil {
		return nil, err
	}
	if !s.addressSelected() {
		return nil, fieldError("address", "Please choose a shipping address")
	}
	if s.NewAddress != nil {
		if err := formError("address", s.NewAddress.Validate()); err != nil {
			return nil, err
		}
		saved, err := o.api.CreateAddress(ctx, *s.NewAddress)
		if err != nil {
			return nil, inline("address", err)
		}
		s.Addresses = append(s.Addresses, *saved)
		s.AddressID = saved.ID
		s.NewAddress = nil
	}

	if err := o.revalidate(ctx); err != nil {
		return nil, err
	}
	o.recompute()
	if s.Cart == nil || len(s.Cart.ActiveItems()) == 0 {
		return nil, fieldError("cart", "Your cart is empty")
	}

	code := ""
	if s.Coupon != nil {
		code = s.Coupon.Code
	}
	paid, err := o.bridge.Pay(ctx, PayRequest{
		Amount:     s.Pricing.Total,
		Currency:   o.currency,
		AddressID:  s.AddressID,
		CouponCode: code,
		Contact:    s.Contact,
	})
	if err != nil {
		return nil, paymentError(err)
	}

	conf := &Confirmation{
		OrderID:     paid.Order.ID,
		OrderNumber: paid.Order.OrderNumber,
		Items:       paid.Order.Items,
		Pricing:     paid.Order.Pricing,
		PaymentID:   paid.PaymentID,
	}
	s.Confirmation = conf
	s.Coupon = nil
	s.Cart.Items = savedOnly(s.Cart.Items)
	s.Cart.Recalculate()
	return conf, nil
}

// revalidate checks stock and applies the recovery plan at most once.
func (o *Orchestrator) revalidate(ctx context.Context) error {
	res, err := o.api.ValidateCart(ctx)
	if err != nil {
		return inline("stock", err)
	}
	if res.Valid {
		return nil
	}
	plan := stock.PlanRecovery(res.Issues)
	if len(plan) == 0 {
		return &Error{Field: "stock", Messages: res.Messages()}
	}
	for _, adj := range plan {
		var c *cart.Cart
		if adj.Remove {
			c, err = o.api.RemoveCartItem(ctx, adj.ItemID)
		} else {
			c, err = o.api.UpdateCartItem(ctx, adj.ItemID, adj.Quantity)
		}
		if err != nil {
			return inline("stock", err)
		}
		o.session.Cart = c
	}
	zerolog.Ctx(ctx).Info().Int("adjustments", len(plan)).Msg("[checkout] cart adjusted to available stock")

	res, err = o.api.ValidateCart(ctx)
	if err != nil {
		return inline("stock", err)
	}
	if !res.Valid {
		return &Error{Field: "stock", Messages: res.Messages()}
	}
	if o.session.Coupon != nil {
		if _, err := o.ApplyCoupon(ctx, o.session.Coupon.Code); err != nil {
			o.RemoveCoupon()
			return err
		}
	}
	return nil
}

func savedOnly(items []cart.LineItem) []cart.LineItem {
	var out []cart.LineItem
	for _, it := range items {
		if it.SavedForLater {
			out = append(out, it)
		}
	}
	return out
}

func paymentError(err error) *Error {
	var de *DeclinedError
	switch {
	case errors.Is(err, ErrPaymentCancelled):
		return &Error{Field: "payment", Messages: []string{"Payment was cancelled. Your order has not been placed."}, Err: err}
	case errors.As(err, &de):
		msg := "Your payment was declined"
		if de.Description != "" {
			msg += ": " + de.Description
		}
		return &Error{Field: "payment", Messages: []string{msg}, Err: err}
	}
	return inline("payment", err)
}
