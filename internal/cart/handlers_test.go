package cart

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/httpx"
)

func newRouter(svc *Service) *gin.Engine {
	r := gin.New()
	g := r.Group("/", httpx.SetUser("u1", "customer"))
	Register(g, svc)
	return r
}

type cartEnvelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Data    Cart   `json:"data"`
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, cartEnvelope) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env cartEnvelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestCartEndpoints_AddUpdateRemove(t *testing.T) {
	svc, _ := newTestService()
	r := newRouter(svc)

	w, env := do(t, r, http.MethodPost, "/cart/items", `{"variant_sku":"MUG-01","quantity":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(env.Data.Items) != 1 || env.Data.Totals.ItemCount != 2 {
		t.Fatalf("unexpected cart: %+v", env.Data)
	}
	id := env.Data.Items[0].ID

	w, env = do(t, r, http.MethodPut, "/cart/items/"+id, `{"quantity":3}`)
	if w.Code != http.StatusOK || env.Data.Items[0].Quantity != 3 {
		t.Fatalf("update failed: status=%d body=%s", w.Code, w.Body.String())
	}
	if env.Data.Totals.Subtotal.String() != "300" {
		t.Fatalf("subtotal=%s, want 300", env.Data.Totals.Subtotal)
	}

	w, env = do(t, r, http.MethodDelete, "/cart/items/"+id, "")
	if w.Code != http.StatusOK || len(env.Data.Items) != 0 {
		t.Fatalf("remove failed: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestCartEndpoints_Errors(t *testing.T) {
	svc, _ := newTestService()
	r := newRouter(svc)

	w, env := do(t, r, http.MethodPost, "/cart/items", `{"variant_sku":"OLD-01","quantity":1}`)
	if w.Code != http.StatusUnprocessableEntity || env.Code != "product_unavailable" {
		t.Fatalf("status=%d body=%s (want 422 product_unavailable)", w.Code, w.Body.String())
	}

	w, env = do(t, r, http.MethodPost, "/cart/items", `{"quantity":1}`)
	if w.Code != http.StatusBadRequest || env.Code != "validation_error" {
		t.Fatalf("status=%d body=%s (want 400 validation_error)", w.Code, w.Body.String())
	}

	w, env = do(t, r, http.MethodPost, "/cart/items/missing/save-for-later", "")
	if w.Code != http.StatusNotFound || env.Code != "item_not_found" {
		t.Fatalf("status=%d body=%s (want 404)", w.Code, w.Body.String())
	}
}

func TestCartEndpoints_Clear(t *testing.T) {
	svc, _ := newTestService()
	r := newRouter(svc)

	do(t, r, http.MethodPost, "/cart/items", `{"variant_sku":"MUG-01","quantity":1}`)
	w, env := do(t, r, http.MethodDelete, "/cart", "")
	if w.Code != http.StatusOK || len(env.Data.Items) != 0 {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
}
