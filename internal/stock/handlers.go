package stock

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/httpx"
)

// CartGetter is the part of the cart service the endpoint needs.
type CartGetter interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
}

func Register(r gin.IRouter, carts CartGetter, v *Validator) {
	r.POST("/cart/validate", validateCartHandler(carts, v))
}

// @Summary Re-check live stock for the active cart lines
// @Tags Cart
// @Security BearerAuth
// @Produce json
// @Success 200 {object} httpx.Response{data=Result}
// @Router /cart/validate [post]
func validateCartHandler(carts CartGetter, v *Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ct, err := carts.Get(c.Request.Context(), httpx.UserID(c))
		if err != nil {
			httpx.Internal(c, err)
			return
		}
		res, err := v.Validate(c.Request.Context(), ct)
		if err != nil {
			httpx.Internal(c, err)
			return
		}
		msg := "cart is valid"
		if !res.Valid {
			msg = "some items need attention"
		}
		httpx.OK(c, http.StatusOK, msg, res)
	}
}
