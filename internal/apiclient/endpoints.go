package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MikeMC777/storefront/internal/address"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/coupon"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/payment"
	"github.com/MikeMC777/storefront/internal/stock"
)

func (c *Client) GetCart(ctx context.Context) (*cart.Cart, error) {
	var out cart.Cart
	if err := c.Do(ctx, http.MethodGet, "/cart", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, itemID string, qty int) (*cart.Cart, error) {
	var out cart.Cart
	err := c.Do(ctx, http.MethodPut, "/cart/items/"+url.PathEscape(itemID), nil, cart.UpdateItemRequest{Quantity: qty}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveCartItem(ctx context.Context, itemID string) (*cart.Cart, error) {
	var out cart.Cart
	if err := c.Do(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(itemID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ValidateCart(ctx context.Context) (stock.Result, error) {
	var out stock.Result
	err := c.Do(ctx, http.MethodPost, "/cart/validate", nil, nil, &out)
	return out, err
}

func (c *Client) ValidateCoupon(ctx context.Context, req coupon.ValidateRequest) (coupon.Result, error) {
	var out coupon.Result
	err := c.Do(ctx, http.MethodPost, "/coupons/validate", nil, req, &out)
	return out, err
}

// AutoApplyCoupon returns nil when no coupon applies.
func (c *Client) AutoApplyCoupon(ctx context.Context, req coupon.AutoApplyRequest) (*coupon.Result, error) {
	var out *coupon.Result
	if err := c.Do(ctx, http.MethodPost, "/coupons/auto-apply", nil, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAddresses(ctx context.Context) ([]address.Address, error) {
	out := []address.Address{}
	err := c.Do(ctx, http.MethodGet, "/addresses", nil, nil, &out)
	return out, err
}

func (c *Client) CreateAddress(ctx context.Context, in address.Input) (*address.Address, error) {
	var out address.Address
	if err := c.Do(ctx, http.MethodPost, "/addresses", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePaymentOrder(ctx context.Context, req payment.CreateOrderRequest) (*payment.CreateOrderResponse, error) {
	var out payment.CreateOrderResponse
	if err := c.Do(ctx, http.MethodPost, "/payments/create-order", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyPayment(ctx context.Context, req payment.VerifyRequest) (*payment.VerifyResponse, error) {
	var out payment.VerifyResponse
	if err := c.Do(ctx, http.MethodPost, "/payments/verify-payment", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ReportPaymentFailure(ctx context.Context, req payment.FailureRequest) error {
	return c.Do(ctx, http.MethodPost, "/payments/failure", nil, req, nil)
}

func (c *Client) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	var out order.Order
	if err := c.Do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOrders(ctx context.Context, limit int) ([]order.Order, error) {
	out := []order.Order{}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	err := c.Do(ctx, http.MethodGet, "/orders", q, nil, &out)
	return out, err
}
