package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/payment"
)

// ErrPaymentCancelled is returned by an Overlay when the customer closes it.
var ErrPaymentCancelled = errors.New("payment cancelled by user")

// DeclinedError is a gateway-reported payment failure.
type DeclinedError struct {
	Code        string
	Description string
	PaymentID   string
}

func (e *DeclinedError) Error() string {
	if e.Description == "" {
		return "payment declined"
	}
	return "payment declined: " + e.Description
}

// OverlayOptions configures the hosted payment overlay.
type OverlayOptions struct {
	Key         string
	OrderID     string
	Amount      int64 // minor units
	Currency    string
	Name        string
	Description string
	Prefill     Contact
}

// Overlay is the hosted checkout of the payment gateway. Open blocks until
// the customer pays (signed confirmation), cancels (ErrPaymentCancelled) or
// the gateway declines (*DeclinedError).
type Overlay interface {
	Open(ctx context.Context, opts OverlayOptions) (payment.VerifyRequest, error)
}

type PaymentAPI interface {
	CreatePaymentOrder(ctx context.Context, req payment.CreateOrderRequest) (*payment.CreateOrderResponse, error)
	VerifyPayment(ctx context.Context, req payment.VerifyRequest) (*payment.VerifyResponse, error)
	ReportPaymentFailure(ctx context.Context, req payment.FailureRequest) error
}

type PayRequest struct {
	Amount     decimal.Decimal
	Currency   string
	AddressID  string
	CouponCode string
	Contact    Contact
}

type PayResult struct {
	Order     *order.Order
	PaymentID string
}

// Bridge runs one payment: gateway order, overlay, verification. It never
// retries; a failure is reported to the backend and returned as is.
type Bridge struct {
	api       PaymentAPI
	overlay   Overlay
	StoreName string
}

func NewBridge(api PaymentAPI, overlay Overlay) *Bridge {
	return &Bridge{api: api, overlay: overlay, StoreName: "Storefront"}
}

func (b *Bridge) Pay(ctx context.Context, req PayRequest) (*PayResult, error) {
	created, err := b.api.CreatePaymentOrder(ctx, payment.CreateOrderRequest{
		Amount:     req.Amount,
		Currency:   req.Currency,
		AddressID:  req.AddressID,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return nil, err
	}

	signed, err := b.overlay.Open(ctx, OverlayOptions{
		Key:         created.Key,
		OrderID:     created.OrderID,
		Amount:      created.Amount,
		Currency:    created.Currency,
		Name:        b.StoreName,
		Description: fmt.Sprintf("Order total %s %s", created.Pricing.Total.StringFixed(2), created.Currency),
		Prefill:     req.Contact,
	})
	if err != nil {
		b.report(ctx, failureFor(created.OrderID, err))
		return nil, err
	}

	verified, err := b.api.VerifyPayment(ctx, signed)
	if err == nil && (verified == nil || !verified.Success || verified.Order == nil) {
		err = errors.New("payment could not be verified")
	}
	if err != nil {
		b.report(ctx, payment.FailureRequest{
			OrderID:   created.OrderID,
			PaymentID: signed.PaymentID,
			Code:      "verification_failed",
			Reason:    err.Error(),
		})
		return nil, err
	}
	return &PayResult{Order: verified.Order, PaymentID: signed.PaymentID}, nil
}

func failureFor(orderID string, err error) payment.FailureRequest {
	fr := payment.FailureRequest{OrderID: orderID, Reason: err.Error()}
	var de *DeclinedError
	switch {
	case errors.Is(err, ErrPaymentCancelled):
		fr.Code = "cancelled"
	case errors.As(err, &de):
		fr.Code, fr.Description, fr.PaymentID = de.Code, de.Description, de.PaymentID
	}
	return fr
}

// report is best-effort: it outlives a cancelled ctx and only logs failures.
func (b *Bridge) report(ctx context.Context, fr payment.FailureRequest) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := b.api.ReportPaymentFailure(rctx, fr); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("gateway_order_id", fr.OrderID).Msg("[checkout] report payment failure")
	}
}
