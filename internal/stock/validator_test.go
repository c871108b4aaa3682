package stock

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/httpx"
)

type fakeCatalog map[string]catalog.Variant

func (f fakeCatalog) GetVariant(_ context.Context, sku string) (*catalog.Variant, error) {
	if sku == "BOOM" {
		return nil, errors.New("db down")
	}
	v, ok := f[sku]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &v, nil
}

var testCatalog = fakeCatalog{
	"TEE-M": {SKU: "TEE-M", Stock: 2, Active: true},
	"MUG":   {SKU: "MUG", Stock: 0, Active: true},
	"CAP":   {SKU: "CAP", Stock: 9, Active: true},
	"OLD":   {SKU: "OLD", Stock: 5, Active: false},
	"SOCKS": {SKU: "SOCKS", Stock: 1, Active: true},
}

func line(id, sku string, qty int, saved bool) cart.LineItem {
	return cart.LineItem{ID: id, VariantSKU: sku, Title: sku, Quantity: qty, UnitPrice: decimal.NewFromInt(10), SavedForLater: saved}
}

func TestValidate_ReportsShortagesAndUnavailable(t *testing.T) {
	c := &cart.Cart{Items: []cart.LineItem{
		line("i1", "TEE-M", 5, false),
		line("i2", "MUG", 1, false),
		line("i3", "CAP", 2, false),
		line("i4", "OLD", 1, false),
		line("i5", "GONE", 1, false),
		line("i6", "SOCKS", 4, true),
	}}
	res, err := NewValidator(testCatalog).Validate(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Issues, 4)

	assert.Equal(t, InsufficientStock, res.Issues[0].Type)
	assert.Equal(t, "i1", res.Issues[0].ItemID)
	require.NotNil(t, res.Issues[0].AvailableQuantity)
	assert.Equal(t, 2, *res.Issues[0].AvailableQuantity)

	assert.Equal(t, InsufficientStock, res.Issues[1].Type)
	assert.Equal(t, 0, *res.Issues[1].AvailableQuantity)

	assert.Equal(t, ProductUnavailable, res.Issues[2].Type)
	assert.Equal(t, "i4", res.Issues[2].ItemID)
	assert.Nil(t, res.Issues[2].AvailableQuantity)
	assert.Equal(t, ProductUnavailable, res.Issues[3].Type)
	assert.Len(t, res.Messages(), 4)
}

func TestValidate_EmptyCartIsValid(t *testing.T) {
	res, err := NewValidator(testCatalog).Validate(context.Background(), &cart.Cart{})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Issues)
}

func TestValidate_PropagatesLookupErrors(t *testing.T) {
	c := &cart.Cart{Items: []cart.LineItem{line("i1", "BOOM", 1, false)}}
	_, err := NewValidator(testCatalog).Validate(context.Background(), c)
	require.Error(t, err)
}

func TestPlanRecovery(t *testing.T) {
	two, zero := 2, 0
	plan := PlanRecovery([]Issue{
		{Type: InsufficientStock, ItemID: "i1", AvailableQuantity: &two},
		{Type: InsufficientStock, ItemID: "i2", AvailableQuantity: &zero},
		{Type: ProductUnavailable, ItemID: "i3"},
		{Type: InsufficientStock, ItemID: "i4"},
	})
	assert.Equal(t, []Adjustment{
		{ItemID: "i1", Quantity: 2},
		{ItemID: "i2", Remove: true},
	}, plan)
}

type staticCarts struct{ c *cart.Cart }

func (s staticCarts) Get(context.Context, string) (*cart.Cart, error) { return s.c, nil }

func TestValidateCartEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
	r := gin.New()
	c := &cart.Cart{Items: []cart.LineItem{line("i1", "TEE-M", 5, false)}}
	Register(r.Group("/", httpx.SetUser("u1", "customer")), staticCarts{c}, NewValidator(testCatalog))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cart/validate", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env struct {
		Data Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Data.Valid)
	require.Len(t, env.Data.Issues, 1)
	assert.Equal(t, 2, *env.Data.Issues[0].AvailableQuantity)
}
