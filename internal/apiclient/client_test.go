package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/storefront/internal/coupon"
)

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestDo_AttachesBearerAndDecodesData(t *testing.T) {
	var gotAuth, gotQuery string
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []map[string]any{{"id": "o1", "order_number": "ORD-1", "status": "paid"}},
		})
	})

	c := New(srv.URL+"/", WithToken(StaticToken("tok")))
	orders, err := c.ListOrders(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "limit=3", gotQuery)
	require.Len(t, orders, 1)
	assert.Equal(t, "ORD-1", orders[0].OrderNumber)
}

func TestDo_AnonymousWhenTokenEmpty(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Errorf("unexpected Authorization header")
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	require.NoError(t, New(srv.URL, WithToken(StaticToken(""))).Do(context.Background(), http.MethodGet, "/x", nil, nil, nil))
}

func TestDo_ErrorEnvelopeBecomesAPIError(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		var in coupon.ValidateRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Code != "BIG" || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %+v", in)
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false, "code": "below_minimum_order", "message": "add 200.00 more",
			"data": map[string]string{"hint": "x"},
		})
	})

	_, err := New(srv.URL).ValidateCoupon(context.Background(), coupon.ValidateRequest{Code: "BIG", OrderAmount: decimal.NewFromInt(300)})
	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusUnprocessableEntity, ae.Status)
	assert.Equal(t, "below_minimum_order", ae.Code)
	assert.Equal(t, "add 200.00 more", ae.Message)
	assert.JSONEq(t, `{"hint":"x"}`, string(ae.Payload))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusOf(err))
}

func TestDo_NonJSONErrorUsesStatusText(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	})
	_, err := New(srv.URL).GetCart(context.Background())
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadGateway, ae.Status)
	assert.Equal(t, "Bad Gateway", ae.Message)
}

func TestAutoApplyCoupon_NoneApplicable(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "no applicable coupon"})
	})
	res, err := New(srv.URL).AutoApplyCoupon(context.Background(), coupon.AutoApplyRequest{OrderAmount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestAutoApplyCoupon_Found(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"code": "SAVE10", "discount_type": "percentage", "discount_applied": "30", "final_amount": "270",
		}})
	})
	res, err := New(srv.URL).AutoApplyCoupon(context.Background(), coupon.AutoApplyRequest{OrderAmount: decimal.NewFromInt(300)})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "SAVE10", res.Code)
	assert.True(t, res.DiscountApplied.Equal(decimal.NewFromInt(30)))
}

func TestNew_DefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, New("").baseURL)
}

func TestStatusOf_NonAPIError(t *testing.T) {
	assert.Equal(t, 0, StatusOf(errors.New("x")))
}
