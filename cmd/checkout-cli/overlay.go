package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/MikeMC777/storefront/internal/checkout"
	"github.com/MikeMC777/storefront/internal/payment"
	"github.com/MikeMC777/storefront/internal/pricing"
)

// terminalOverlay stands in for the hosted payment page. With a key secret
// it signs the payment itself (test mode); otherwise it expects the JSON the
// gateway handed back, pasted on one line.
type terminalOverlay struct {
	in        *bufio.Reader
	out       io.Writer
	keySecret string
}

func (t *terminalOverlay) Open(ctx context.Context, opts checkout.OverlayOptions) (payment.VerifyRequest, error) {
	fmt.Fprintf(t.out, "\n%s: %s\n", opts.Name, opts.Description)
	fmt.Fprintf(t.out, "gateway order %s, %d %s minor units (key %s)\n", opts.OrderID, opts.Amount, opts.Currency, opts.Key)
	fmt.Fprint(t.out, "[p]ay, [d]ecline or [c]ancel? ")

	choice, err := t.readLine(ctx)
	if err != nil {
		return payment.VerifyRequest{}, err
	}
	switch strings.ToLower(choice) {
	case "p", "pay":
	case "d", "decline":
		return payment.VerifyRequest{}, &checkout.DeclinedError{Code: "BAD_REQUEST_ERROR", Description: "Payment declined by customer"}
	default:
		return payment.VerifyRequest{}, checkout.ErrPaymentCancelled
	}

	if t.keySecret != "" {
		pid := "pay_cli" + strings.TrimPrefix(opts.OrderID, "order_")
		return payment.VerifyRequest{
			OrderID:   opts.OrderID,
			PaymentID: pid,
			Signature: payment.Sign(opts.OrderID, pid, t.keySecret),
		}, nil
	}

	fmt.Fprintln(t.out, "paste the gateway response JSON:")
	raw, err := t.readLine(ctx)
	if err != nil {
		return payment.VerifyRequest{}, err
	}
	var vr payment.VerifyRequest
	if err := json.Unmarshal([]byte(raw), &vr); err != nil {
		return payment.VerifyRequest{}, fmt.Errorf("decode gateway response: %w", err)
	}
	if vr.OrderID == "" {
		vr.OrderID = opts.OrderID
	}
	return vr, nil
}

func (t *terminalOverlay) readLine(ctx context.Context) (string, error) {
	type result struct {
		s   string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := t.in.ReadString('\n')
		if err == io.EOF && s != "" {
			err = nil
		}
		ch <- result{strings.TrimSpace(s), err}
	}()
	select {
	case <-ctx.Done():
		return "", checkout.ErrPaymentCancelled
	case r := <-ch:
		if r.err == io.EOF {
			return "", checkout.ErrPaymentCancelled
		}
		return r.s, r.err
	}
}

func printSummary(w io.Writer, s *checkout.Session) {
	for _, st := range s.Steps() {
		fmt.Fprintf(w, "[%s:%s] ", st.Name, st.State)
	}
	fmt.Fprintln(w)
	if s.Cart != nil {
		for _, it := range s.Cart.ActiveItems() {
			fmt.Fprintf(w, "  %-30s x%-3d %10s\n", it.Title, it.Quantity, it.LineTotal().StringFixed(2))
		}
	}
	printPricing(w, s.Pricing)
	if s.Coupon != nil {
		fmt.Fprintf(w, "  coupon %s applied\n", s.Coupon.Code)
	}
}

func printPricing(w io.Writer, p pricing.Breakdown) {
	fmt.Fprintf(w, "  subtotal %10s\n", p.Subtotal.StringFixed(2))
	fmt.Fprintf(w, "  shipping %10s\n", p.Shipping.StringFixed(2))
	fmt.Fprintf(w, "  tax      %10s\n", p.Tax.StringFixed(2))
	if !p.Discount.IsZero() {
		fmt.Fprintf(w, "  discount %10s\n", "-"+p.Discount.StringFixed(2))
	}
	fmt.Fprintf(w, "  total    %10s\n", p.Total.StringFixed(2))
}
