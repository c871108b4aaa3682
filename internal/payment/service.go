package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/storefront/internal/address"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/coupon"
	"github.com/MikeMC777/storefront/internal/db"
	"github.com/MikeMC777/storefront/internal/events"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/pricing"
	"github.com/MikeMC777/storefront/internal/stock"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrAmountMismatch    = errors.New("amount does not match the cart total")
	ErrSignatureMismatch = errors.New("payment signature verification failed")
	ErrStockChanged      = errors.New("items went out of stock during payment")
	ErrNothingToPay      = errors.New("order total must be positive")
)

// StockError carries the issues found while opening a payment.
type StockError struct {
	Issues []stock.Issue
}

func (e *StockError) Error() string {
	msgs := stock.Result{Issues: e.Issues}.Messages()
	return "stock check failed: " + strings.Join(msgs, "; ")
}

type CartStore interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
	ClearActive(ctx context.Context, userID string) error
}

type AddressReader interface {
	Get(ctx context.Context, userID, id string) (*address.Address, error)
}

type Coupons interface {
	Validate(ctx context.Context, userID string, req coupon.ValidateRequest) (coupon.Result, error)
	RedeemTx(ctx context.Context, tx pgx.Tx, code, userID string) error
	InvalidateCache(ctx context.Context, code string)
}

// Deps wires the collaborators of the payment service.
type Deps struct {
	DB        db.Beginner
	Gateway   Gateway
	Attempts  AttemptRepository
	Orders    order.Repository
	Carts     CartStore
	Addresses AddressReader
	Coupons   Coupons
	Stock     *stock.Validator
	Events    events.Publisher
	Rules     pricing.Rules
	KeyID     string
	KeySecret string
	Currency  string
	// defaults to catalog.DecrementStock
	TakeStock func(ctx context.Context, tx pgx.Tx, sku string, qty int) error
}

type Service struct {
	d   Deps
	now func() time.Time
}

func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.TakeStock == nil {
		d.TakeStock = catalog.DecrementStock
	}
	if d.Currency == "" {
		d.Currency = "INR"
	}
	return &Service{d: d, now: time.Now}
}

func couponItems(items []cart.LineItem) []coupon.Item {
	out := make([]coupon.Item, 0, len(items))
	for _, it := range items {
		out = append(out, coupon.Item{ProductID: it.ProductID, Category: it.Category, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return out
}

func orderItems(items []cart.LineItem) []order.Item {
	out := make([]order.Item, 0, len(items))
	for _, it := range items {
		out = append(out, order.Item{
			ProductID:  it.ProductID,
			VariantSKU: it.VariantSKU,
			Title:      it.Title,
			Size:       it.Size,
			Color:      it.Color,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			LineTotal:  it.LineTotal(),
		})
	}
	return out
}

// Quote prices the active cart of userID with an optional coupon. It is the
// single source of truth for the amount charged.
func (s *Service) Quote(ctx context.Context, userID, couponCode string) (*cart.Cart, pricing.Breakdown, string, error) {
	c, err := s.d.Carts.Get(ctx, userID)
	if err != nil {
		return nil, pricing.Breakdown{}, "", fmt.Errorf("load cart: %w", err)
	}
	active := c.ActiveItems()
	if len(active) == 0 {
		return nil, pricing.Breakdown{}, "", ErrEmptyCart
	}
	subtotal := c.Totals.Subtotal
	if couponCode == "" {
		return c, s.d.Rules.Compute(subtotal, decimal.Zero, false), "", nil
	}
	res, err := s.d.Coupons.Validate(ctx, userID, coupon.ValidateRequest{
		Code:        couponCode,
		OrderAmount: subtotal,
		Items:       couponItems(active),
	})
	if err != nil {
		return nil, pricing.Breakdown{}, "", err
	}
	return c, s.d.Rules.Compute(subtotal, res.DiscountApplied, res.FreeShipping), res.Code, nil
}

// CreateOrder opens a gateway order for the server-side total and records the
// attempt together with the snapshot the order will be built from.
func (s *Service) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*CreateOrderResponse, error) {
	addr, err := s.d.Addresses.Get(ctx, userID, req.AddressID)
	if err != nil {
		return nil, err
	}
	c, quote, code, err := s.Quote(ctx, userID, req.CouponCode)
	if err != nil {
		return nil, err
	}
	check, err := s.d.Stock.Validate(ctx, c)
	if err != nil {
		return nil, err
	}
	if !check.Valid {
		return nil, &StockError{Issues: check.Issues}
	}
	if !req.Amount.IsZero() && !req.Amount.Equal(quote.Total) {
		return nil, fmt.Errorf("%w: client %s, server %s", ErrAmountMismatch, req.Amount, quote.Total)
	}
	if !quote.Total.IsPositive() {
		return nil, ErrNothingToPay
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.d.Currency
	}

	minor := pricing.MinorUnits(quote.Total)
	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	gw, err := s.d.Gateway.CreateOrder(ctx, GatewayOrderRequest{
		Amount:   minor,
		Currency: currency,
		Receipt:  receipt,
		Notes:    map[string]string{"user_id": userID, "address_id": addr.ID, "coupon_code": code},
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	att := &Attempt{
		GatewayOrderID: gw.ID,
		UserID:         userID,
		Amount:         quote.Total,
		Currency:       currency,
		AddressID:      addr.ID,
		CouponCode:     code,
		Snapshot:       Snapshot{Items: orderItems(c.ActiveItems()), Pricing: quote, Address: *addr},
		Status:         AttemptCreated,
	}
	if err := s.d.Attempts.Create(ctx, att); err != nil {
		return nil, fmt.Errorf("save payment attempt: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("gateway_order_id", gw.ID).Str("user_id", userID).
		Str("total", quote.Total.String()).Msg("[payment] gateway order created")

	return &CreateOrderResponse{OrderID: gw.ID, Key: s.d.KeyID, Amount: minor, Currency: currency, Pricing: quote}, nil
}

func (s *Service) attempt(ctx context.Context, userID, gatewayOrderID string) (*Attempt, error) {
	att, err := s.d.Attempts.Get(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if att.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	return att, nil
}

type placedEvent struct {
	OrderID        string `json:"order_id"`
	OrderNumber    string `json:"order_number"`
	UserID         string `json:"user_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Total          string `json:"total"`
	CouponCode     string `json:"coupon_code,omitempty"`
}

type failedEvent struct {
	GatewayOrderID string `json:"gateway_order_id"`
	UserID         string `json:"user_id"`
	PaymentID      string `json:"payment_id,omitempty"`
	Reason         string `json:"reason"`
}

// VerifyPayment checks the callback signature and finalizes the order. The
// order, the coupon redemption, the stock decrement and the attempt update
// commit together. Verifying an already paid attempt returns its order.
func (s *Service) VerifyPayment(ctx context.Context, userID string, req VerifyRequest) (*order.Order, error) {
	att, err := s.attempt(ctx, userID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if att.Status == AttemptPaid {
		return s.d.Orders.GetByID(ctx, att.OrderID)
	}
	if !VerifySignature(req.OrderID, req.PaymentID, req.Signature, s.d.KeySecret) {
		s.fail(ctx, att, req.PaymentID, "signature mismatch")
		return nil, ErrSignatureMismatch
	}

	var placed *order.Order
	err = db.WithTx(ctx, s.d.DB, func(tx pgx.Tx) error {
		locked, err := s.d.Attempts.GetForUpdate(ctx, tx, att.GatewayOrderID)
		if err != nil {
			return err
		}
		if locked.Status == AttemptPaid {
			placed = &order.Order{ID: locked.OrderID}
			return nil
		}
		snap := locked.Snapshot
		o := &order.Order{
			ID:              uuid.NewString(),
			OrderNumber:     order.NewOrderNumber(s.now()),
			UserID:          userID,
			Status:          order.StatusPaid,
			Items:           snap.Items,
			Pricing:         snap.Pricing,
			ShippingAddress: snap.Address,
			PaymentRef:      req.PaymentID,
			CouponCode:      locked.CouponCode,
		}
		if err := s.d.Orders.CreateTx(ctx, tx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if o.CouponCode != "" {
			if err := s.d.Coupons.RedeemTx(ctx, tx, o.CouponCode, userID); err != nil {
				return err
			}
		}
		for _, it := range o.Items {
			if err := s.d.TakeStock(ctx, tx, it.VariantSKU, it.Quantity); err != nil {
				if errors.Is(err, catalog.ErrInsufficientStock) {
					return fmt.Errorf("%w: %s", ErrStockChanged, it.Title)
				}
				return fmt.Errorf("take stock %s: %w", it.VariantSKU, err)
			}
		}
		if err := s.d.Attempts.MarkPaidTx(ctx, tx, locked.GatewayOrderID, req.PaymentID, o.ID); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		// the customer was charged; the attempt stays reconcilable
		zerolog.Ctx(ctx).Error().Err(err).Str("gateway_order_id", att.GatewayOrderID).
			Str("payment_id", req.PaymentID).Msg("[payment] finalize order failed")
		s.fail(ctx, att, req.PaymentID, err.Error())
		return nil, err
	}
	if placed.OrderNumber == "" {
		return s.d.Orders.GetByID(ctx, placed.ID)
	}
	if placed.CouponCode != "" {
		s.d.Coupons.InvalidateCache(ctx, placed.CouponCode)
	}

	if err := s.d.Carts.ClearActive(ctx, userID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("[payment] clear cart after order")
	}
	events.PublishAsync(s.d.Events, events.TopicOrderPlaced, userID, placedEvent{
		OrderID:        placed.ID,
		OrderNumber:    placed.OrderNumber,
		UserID:         userID,
		GatewayOrderID: att.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Total:          placed.Pricing.Total.String(),
		CouponCode:     placed.CouponCode,
	})
	zerolog.Ctx(ctx).Info().Str("order_id", placed.ID).Str("order_number", placed.OrderNumber).
		Msg("[payment] order placed")
	return placed, nil
}

// ReportFailure records a cancelled or declined payment for reconciliation.
func (s *Service) ReportFailure(ctx context.Context, userID string, req FailureRequest) error {
	att, err := s.attempt(ctx, userID, req.OrderID)
	if err != nil {
		return err
	}
	if att.Status == AttemptPaid {
		return nil
	}
	s.fail(ctx, att, req.PaymentID, req.reason())
	return nil
}

func (s *Service) fail(ctx context.Context, att *Attempt, paymentID, reason string) {
	if err := s.d.Attempts.MarkFailed(ctx, att.GatewayOrderID, paymentID, reason); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("gateway_order_id", att.GatewayOrderID).Msg("[payment] mark attempt failed")
	}
	events.PublishAsync(s.d.Events, events.TopicPaymentFailed, att.UserID, failedEvent{
		GatewayOrderID: att.GatewayOrderID,
		UserID:         att.UserID,
		PaymentID:      paymentID,
		Reason:         reason,
	})
}
