package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/storefront/internal/address"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/coupon"
	"github.com/MikeMC777/storefront/internal/events"
	"github.com/MikeMC777/storefront/internal/httpx"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/pricing"
	"github.com/MikeMC777/storefront/internal/stock"
)

const (
	keyID     = "rzp_test_key"
	keySecret = "rzp_test_secret"
	userID    = "u1"
)

// ---------- fakes ----------

type fakeTx struct {
	pgx.Tx
	committed bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error { return nil }

type fakeDB struct{ txs []*fakeTx }

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	tx := &fakeTx{}
	d.txs = append(d.txs, tx)
	return tx, nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	variants map[string]catalog.Variant
}

func (f *fakeCatalog) GetVariant(_ context.Context, sku string) (*catalog.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[sku]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &v, nil
}

func (f *fakeCatalog) take(_ context.Context, _ pgx.Tx, sku string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.variants[sku]
	if v.Stock < qty {
		return catalog.ErrInsufficientStock
	}
	v.Stock -= qty
	f.variants[sku] = v
	return nil
}

func (f *fakeCatalog) setStock(sku string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.variants[sku]
	v.Stock = n
	f.variants[sku] = v
}

type memAttempts struct{ m map[string]*Attempt }

func (r *memAttempts) Create(_ context.Context, a *Attempt) error {
	cp := *a
	r.m[a.GatewayOrderID] = &cp
	return nil
}

func (r *memAttempts) Get(_ context.Context, id string) (*Attempt, error) {
	a, ok := r.m[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAttempts) GetForUpdate(ctx context.Context, _ pgx.Tx, id string) (*Attempt, error) {
	return r.Get(ctx, id)
}

func (r *memAttempts) MarkPaidTx(_ context.Context, _ pgx.Tx, id, paymentID, orderID string) error {
	a := r.m[id]
	a.Status, a.PaymentID, a.OrderID = AttemptPaid, paymentID, orderID
	return nil
}

func (r *memAttempts) MarkFailed(_ context.Context, id, paymentID, reason string) error {
	if a, ok := r.m[id]; ok && a.Status != AttemptPaid {
		a.Status, a.FailureReason = AttemptFailed, reason
		if paymentID != "" {
			a.PaymentID = paymentID
		}
	}
	return nil
}

type memOrders struct{ m map[string]order.Order }

func (r *memOrders) CreateTx(_ context.Context, _ pgx.Tx, o *order.Order) error {
	r.m[o.ID] = *o
	return nil
}

func (r *memOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := r.m[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (r *memOrders) ListByUser(context.Context, string, int, int) ([]order.Order, error) {
	return nil, nil
}

func (r *memOrders) UpdateStatus(context.Context, string, order.Status) (*order.Order, error) {
	return nil, errors.New("not used")
}

type fakeAddresses map[string]address.Address

func (f fakeAddresses) Get(_ context.Context, uid, id string) (*address.Address, error) {
	a, ok := f[id]
	if !ok || a.UserID != uid {
		return nil, address.ErrNotFound
	}
	return &a, nil
}

// fakeCoupons knows a single SAVE10 coupon and counts redemptions. Each
// cache invalidation records whether the finalize tx had committed by then.
type fakeCoupons struct {
	redeemed    map[string]int
	db          *fakeDB
	invalidated []bool
}

var save10 = coupon.Coupon{
	Code: "SAVE10", Type: coupon.Percentage, Value: decimal.NewFromInt(10),
	MaxDiscount: decimal.NewNullDecimal(decimal.NewFromInt(50)), Active: true,
}

func (f *fakeCoupons) Validate(_ context.Context, _ string, req coupon.ValidateRequest) (coupon.Result, error) {
	if coupon.NormalizeCode(req.Code) != save10.Code {
		return coupon.Result{}, &coupon.RuleError{Kind: coupon.ErrInvalidCoupon, Msg: "unknown coupon"}
	}
	c := save10
	return coupon.Evaluate(&c, req, f.redeemed[save10.Code], time.Now())
}

func (f *fakeCoupons) RedeemTx(_ context.Context, _ pgx.Tx, code, _ string) error {
	f.redeemed[code]++
	return nil
}

func (f *fakeCoupons) InvalidateCache(context.Context, string) {
	committed := len(f.db.txs) > 0 && f.db.txs[len(f.db.txs)-1].committed
	f.invalidated = append(f.invalidated, committed)
}

// gatewayServer fakes POST /v1/orders and remembers the last request.
type gatewayServer struct {
	*httptest.Server
	last GatewayOrderRequest
	fail bool
}

func newGateway(t *testing.T) *gatewayServer {
	t.Helper()
	g := &gatewayServer{}
	g.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if r.URL.Path != "/v1/orders" || !ok || user != keyID || pass != keySecret {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Authentication failed"}}`))
			return
		}
		if g.fail {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"code":"SERVER_ERROR","description":"boom"}}`))
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&g.last)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GatewayOrder{
			ID: "order_" + uuid.NewString()[:8], Entity: "order", Amount: g.last.Amount,
			Currency: g.last.Currency, Receipt: g.last.Receipt, Status: "created",
		})
	}))
	t.Cleanup(g.Close)
	return g
}

type fixture struct {
	svc      *Service
	router   *gin.Engine
	gateway  *gatewayServer
	catalog  *fakeCatalog
	carts    *cart.Service
	attempts *memAttempts
	orders   *memOrders
	coupons  *fakeCoupons
	events   *events.Memory
	db       *fakeDB
	addrID   string
}

// newFixture builds a cart of two tees at 150 each (subtotal 300).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gateway: newGateway(t),
		catalog: &fakeCatalog{variants: map[string]catalog.Variant{
			"TEE-M": {SKU: "TEE-M", ProductID: "p1", Title: "Tee", Category: "shirts", Size: "M", Price: decimal.NewFromInt(150), Stock: 5, Active: true},
		}},
		attempts: &memAttempts{m: map[string]*Attempt{}},
		orders:   &memOrders{m: map[string]order.Order{}},
		events:   &events.Memory{},
		db:       &fakeDB{},
		addrID:   uuid.NewString(),
	}
	f.coupons = &fakeCoupons{redeemed: map[string]int{}, db: f.db}
	f.carts = cart.NewService(cart.NewMemRepo(), f.catalog)
	_, err := f.carts.AddItem(context.Background(), userID, cart.AddItemRequest{VariantSKU: "TEE-M", Quantity: 2})
	require.NoError(t, err)

	f.svc = NewService(Deps{
		DB:        f.db,
		Gateway:   NewRazorpay(f.gateway.URL, keyID, keySecret),
		Attempts:  f.attempts,
		Orders:    f.orders,
		Carts:     f.carts,
		Addresses: fakeAddresses{f.addrID: {ID: f.addrID, UserID: userID, Recipient: "Asha", City: "Pune"}},
		Coupons:   f.coupons,
		Stock:     stock.NewValidator(f.catalog),
		Events:    f.events,
		Rules:     pricing.DefaultRules(),
		KeyID:     keyID,
		KeySecret: keySecret,
		TakeStock: f.catalog.take,
	})
	f.router = gin.New()
	Register(f.router.Group("/", httpx.SetUser(userID, "customer")), f.svc)
	return f
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func (f *fixture) post(t *testing.T, path string, body any) (int, envelope) {
	t.Helper()
	b, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func (f *fixture) createOrder(t *testing.T, amount, code string) CreateOrderResponse {
	t.Helper()
	body := map[string]string{"address_id": f.addrID, "coupon_code": code}
	if amount != "" {
		body["amount"] = amount
	}
	status, env := f.post(t, "/payments/create-order", body)
	require.Equal(t, http.StatusCreated, status, string(env.Data))
	var out CreateOrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// ---------- tests ----------

func TestCreateOrder_WithCoupon(t *testing.T) {
	f := newFixture(t)

	out := f.createOrder(t, "374", "save10")
	assert.Equal(t, keyID, out.Key)
	assert.Equal(t, int64(37400), out.Amount)
	assert.Equal(t, "INR", out.Currency)
	assert.Equal(t, "30", out.Pricing.Discount.String())
	assert.Equal(t, "50", out.Pricing.Shipping.String())
	assert.Equal(t, "54", out.Pricing.Tax.String())

	assert.Equal(t, int64(37400), f.gateway.last.Amount)
	assert.Equal(t, "SAVE10", f.gateway.last.Notes["coupon_code"])

	att := f.attempts.m[out.OrderID]
	require.NotNil(t, att)
	assert.Equal(t, AttemptCreated, att.Status)
	assert.Equal(t, "SAVE10", att.CouponCode)
	require.Len(t, att.Snapshot.Items, 1)
	assert.Equal(t, 2, att.Snapshot.Items[0].Quantity)
	assert.Equal(t, "Pune", att.Snapshot.Address.City)
}

func TestCreateOrder_Rejections(t *testing.T) {
	f := newFixture(t)

	status, env := f.post(t, "/payments/create-order", map[string]string{"amount": "400", "address_id": f.addrID})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "amount_mismatch", env.Code)

	status, env = f.post(t, "/payments/create-order", map[string]string{"address_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "address_not_found", env.Code)

	status, env = f.post(t, "/payments/create-order", map[string]string{"address_id": f.addrID, "coupon_code": "NOPE"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "invalid_coupon", env.Code)

	f.catalog.setStock("TEE-M", 1)
	status, env = f.post(t, "/payments/create-order", map[string]string{"address_id": f.addrID})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "stock_issues", env.Code)
	var issues []stock.Issue
	require.NoError(t, json.Unmarshal(env.Data, &issues))
	require.Len(t, issues, 1)
	assert.Equal(t, 1, *issues[0].AvailableQuantity)

	f.catalog.setStock("TEE-M", 5)
	f.gateway.fail = true
	status, env = f.post(t, "/payments/create-order", map[string]string{"address_id": f.addrID})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "gateway_error", env.Code)
	assert.Empty(t, f.attempts.m)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.carts.ClearActive(context.Background(), userID))

	status, env := f.post(t, "/payments/create-order", map[string]string{"address_id": f.addrID})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_order", env.Code)
}

func TestVerifyPayment_PlacesOrderOnce(t *testing.T) {
	f := newFixture(t)
	created := f.createOrder(t, "374", "SAVE10")

	signed := VerifyRequest{OrderID: created.OrderID, PaymentID: "pay_123", Signature: Sign(created.OrderID, "pay_123", keySecret)}
	status, env := f.post(t, "/payments/verify-payment", signed)
	require.Equal(t, http.StatusOK, status, string(env.Data))

	var res VerifyResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.True(t, res.Success)
	require.NotNil(t, res.Order)
	assert.Equal(t, order.StatusPaid, res.Order.Status)
	assert.Equal(t, "pay_123", res.Order.PaymentRef)
	assert.Equal(t, "374", res.Order.Pricing.Total.String())
	assert.Equal(t, "SAVE10", res.Order.CouponCode)

	assert.Len(t, f.orders.m, 1)
	assert.Equal(t, 1, f.coupons.redeemed["SAVE10"])
	v, _ := f.catalog.GetVariant(context.Background(), "TEE-M")
	assert.Equal(t, 3, v.Stock)
	assert.Equal(t, AttemptPaid, f.attempts.m[created.OrderID].Status)
	require.Len(t, f.db.txs, 1)
	assert.True(t, f.db.txs[0].committed)
	assert.Equal(t, []bool{true}, f.coupons.invalidated, "coupon cache dropped once, after commit")

	c, err := f.carts.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, c.ActiveItems())

	assert.Eventually(t, func() bool { return len(f.events.Topic(events.TopicOrderPlaced)) == 1 },
		time.Second, 5*time.Millisecond)

	// a repeated callback returns the same order without side effects
	status, env = f.post(t, "/payments/verify-payment", signed)
	require.Equal(t, http.StatusOK, status)
	var again VerifyResponse
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.Equal(t, res.Order.ID, again.Order.ID)
	assert.Len(t, f.orders.m, 1)
	assert.Equal(t, 1, f.coupons.redeemed["SAVE10"])
	assert.Len(t, f.coupons.invalidated, 1)
	v, _ = f.catalog.GetVariant(context.Background(), "TEE-M")
	assert.Equal(t, 3, v.Stock)
}

func TestVerifyPayment_BadSignature(t *testing.T) {
	f := newFixture(t)
	created := f.createOrder(t, "", "")

	status, env := f.post(t, "/payments/verify-payment", VerifyRequest{
		OrderID: created.OrderID, PaymentID: "pay_1", Signature: Sign(created.OrderID, "pay_1", "wrong-secret"),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "signature_mismatch", env.Code)
	assert.Empty(t, f.orders.m)
	assert.Equal(t, AttemptFailed, f.attempts.m[created.OrderID].Status)
	assert.Eventually(t, func() bool { return len(f.events.Topic(events.TopicPaymentFailed)) == 1 },
		time.Second, 5*time.Millisecond)
}

func TestVerifyPayment_StockGoneDuringPayment(t *testing.T) {
	f := newFixture(t)
	created := f.createOrder(t, "", "")
	f.catalog.setStock("TEE-M", 1)

	status, env := f.post(t, "/payments/verify-payment", VerifyRequest{
		OrderID: created.OrderID, PaymentID: "pay_2", Signature: Sign(created.OrderID, "pay_2", keySecret),
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "stock_changed", env.Code)
	require.Len(t, f.db.txs, 1)
	assert.False(t, f.db.txs[0].committed)
	assert.Equal(t, AttemptFailed, f.attempts.m[created.OrderID].Status)

	// the captured payment stays traceable for a refund
	assert.Equal(t, "pay_2", f.attempts.m[created.OrderID].PaymentID)
	assert.Eventually(t, func() bool {
		msgs := f.events.Topic(events.TopicPaymentFailed)
		return len(msgs) == 1 && strings.Contains(string(msgs[0].Value), `"payment_id":"pay_2"`)
	}, time.Second, 5*time.Millisecond)
}

func TestVerifyPayment_RolledBackKeepsCouponCache(t *testing.T) {
	f := newFixture(t)
	created := f.createOrder(t, "374", "SAVE10")
	f.catalog.setStock("TEE-M", 1)

	status, _ := f.post(t, "/payments/verify-payment", VerifyRequest{
		OrderID: created.OrderID, PaymentID: "pay_3", Signature: Sign(created.OrderID, "pay_3", keySecret),
	})
	assert.Equal(t, http.StatusConflict, status)
	require.Len(t, f.db.txs, 1)
	assert.False(t, f.db.txs[0].committed)
	assert.Empty(t, f.coupons.invalidated)
}

func TestReportFailure_LeavesNoOrder(t *testing.T) {
	f := newFixture(t)
	created := f.createOrder(t, "", "")

	status, _ := f.post(t, "/payments/failure", FailureRequest{OrderID: created.OrderID, Reason: "payment cancelled by user"})
	require.Equal(t, http.StatusOK, status)
	att := f.attempts.m[created.OrderID]
	assert.Equal(t, AttemptFailed, att.Status)
	assert.Equal(t, "payment cancelled by user", att.FailureReason)
	assert.Empty(t, f.orders.m)

	c, err := f.carts.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, c.ActiveItems(), 1)
}

func TestAttemptsOfOtherUsersAreHidden(t *testing.T) {
	f := newFixture(t)
	created := f.createOrder(t, "", "")
	f.attempts.m[created.OrderID].UserID = "someone-else"

	status, env := f.post(t, "/payments/failure", FailureRequest{OrderID: created.OrderID})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "payment_not_found", env.Code)
}

func TestRazorpay_GatewayErrorIsTyped(t *testing.T) {
	g := newGateway(t)
	rp := NewRazorpay(g.URL+"/", keyID, "bad")
	_, err := rp.CreateOrder(context.Background(), GatewayOrderRequest{Amount: 100, Currency: "INR"})
	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, http.StatusUnauthorized, ge.Status)
	assert.Equal(t, "BAD_REQUEST_ERROR", ge.Code)

	rp = NewRazorpay("http://127.0.0.1:1", keyID, keySecret)
	_, err = rp.CreateOrder(context.Background(), GatewayOrderRequest{Amount: 100, Currency: "INR"})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestVerifySignature(t *testing.T) {
	sig := Sign("order_1", "pay_1", keySecret)
	assert.Len(t, sig, 64)
	assert.True(t, VerifySignature("order_1", "pay_1", sig, keySecret))
	assert.False(t, VerifySignature("order_1", "pay_2", sig, keySecret))
	assert.False(t, VerifySignature("order_1", "pay_1", sig, "other"))
	assert.False(t, VerifySignature("order_1", "", "", keySecret))
	assert.Equal(t, "07a74f0d54ff0d49f7e8c6670ee30f6854f5b787d46475823b38bec4e41ed8c5", sig)
}

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
}
