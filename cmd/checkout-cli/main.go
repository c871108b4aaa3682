// Command checkout-cli walks the storefront checkout from a terminal: it
// loads the cart, applies a coupon, pays through a terminal stand-in for the
// gateway overlay and prints the confirmation.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MikeMC777/storefront/internal/apiclient"
	"github.com/MikeMC777/storefront/internal/checkout"
	"github.com/MikeMC777/storefront/internal/config"
	"github.com/MikeMC777/storefront/internal/httpx"
	"github.com/MikeMC777/storefront/internal/logging"
	"github.com/MikeMC777/storefront/internal/pricing"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.AppEnv, cfg.LogLevel)

	var (
		userID    = flag.String("user", "u1", "user id to sign a development token for")
		couponArg = flag.String("coupon", "", "coupon code; \"auto\" picks the best one")
		addressID = flag.String("address", "", "saved address id (default address when empty)")
		name      = flag.String("name", "", "contact name")
		email     = flag.String("email", "", "contact email")
		phone     = flag.String("phone", "", "contact phone")
		selfSign  = flag.Bool("self-sign", !cfg.IsProduction(), "sign payments locally with RAZORPAY_KEY_SECRET")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	token := os.Getenv("STOREFRONT_TOKEN")
	if token == "" {
		t, err := httpx.NewAuthenticator(cfg.JWTSecret).Issue(*userID, "", "customer", time.Hour)
		if err != nil {
			log.Fatal().Err(err).Msg("[cli] issue token")
		}
		token = t
	}
	api := apiclient.New(cfg.APIBaseURL, apiclient.WithToken(apiclient.StaticToken(token)))

	overlay := &terminalOverlay{in: bufio.NewReader(os.Stdin), out: os.Stdout}
	if *selfSign {
		overlay.keySecret = cfg.RazorpayKeySecret
	}
	rules := pricing.Rules{FreeShippingAbove: cfg.FreeShippingAbove, ShippingFee: cfg.ShippingFee, TaxRate: cfg.TaxRate}
	co := checkout.New(api, overlay, rules, cfg.Currency)

	if err := co.Load(ctx); err != nil {
		fail(err)
	}
	switch *couponArg {
	case "":
	case "auto":
		res, err := co.AutoApplyCoupon(ctx)
		if err != nil {
			fail(err)
		}
		if res == nil {
			fmt.Println("no coupon applies to this cart")
		}
	default:
		if _, err := co.ApplyCoupon(ctx, *couponArg); err != nil {
			fail(err)
		}
	}
	printSummary(os.Stdout, co.Session())

	conf, err := co.PlaceOrder(ctx, checkout.PlaceOrderInput{
		Contact:   &checkout.Contact{Name: *name, Email: *email, Phone: *phone},
		AddressID: *addressID,
	})
	if err != nil {
		fail(err)
	}
	fmt.Printf("\norder %s placed (payment %s)\n", conf.OrderNumber, conf.PaymentID)
	for _, it := range conf.Items {
		fmt.Printf("  %-30s x%-3d %10s\n", it.Title, it.Quantity, it.LineTotal.StringFixed(2))
	}
	printPricing(os.Stdout, conf.Pricing)
}

func fail(err error) {
	var ce *checkout.Error
	if errors.As(err, &ce) {
		for _, m := range ce.Messages {
			fmt.Fprintf(os.Stderr, "%s: %s\n", ce.Field, m)
		}
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
