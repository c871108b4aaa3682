package cart

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/httpx"
)

// Register mounts the cart endpoints; r must already be behind auth.
func Register(r gin.IRouter, svc *Service) {
	r.GET("/cart", getCartHandler(svc))
	r.DELETE("/cart", clearCartHandler(svc))
	r.POST("/cart/items", addItemHandler(svc))
	r.PUT("/cart/items/:id", updateItemHandler(svc))
	r.DELETE("/cart/items/:id", removeItemHandler(svc))
	r.POST("/cart/items/:id/save-for-later", saveForLaterHandler(svc))
	r.POST("/cart/items/:id/move-to-cart", moveToCartHandler(svc))
}

func writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		httpx.Fail(c, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, ErrUnavailable):
		httpx.Fail(c, http.StatusUnprocessableEntity, "product_unavailable", err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		httpx.Fail(c, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Fail(c, http.StatusConflict, "cart_conflict", "cart changed, please retry")
	default:
		httpx.Internal(c, err)
	}
}

// @Summary Get the current cart
// @Tags Cart
// @Security BearerAuth
// @Produce json
// @Success 200 {object} httpx.Response{data=Cart}
// @Router /cart [get]
func getCartHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.Get(c.Request.Context(), httpx.UserID(c))
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "", out)
	}
}

// @Summary Add a variant to the cart
// @Tags Cart
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body AddItemRequest true "item"
// @Success 200 {object} httpx.Response{data=Cart}
// @Failure 422 {object} httpx.Response
// @Router /cart/items [post]
func addItemHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in AddItemRequest
		if !httpx.BindJSON(c, &in) {
			return
		}
		out, err := svc.AddItem(c.Request.Context(), httpx.UserID(c), in)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "item added", out)
	}
}

// @Summary Change a line quantity (0 removes it)
// @Tags Cart
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "line item id"
// @Param body body UpdateItemRequest true "quantity"
// @Success 200 {object} httpx.Response{data=Cart}
// @Router /cart/items/{id} [put]
func updateItemHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in UpdateItemRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid_body", "invalid json")
			return
		}
		out, err := svc.UpdateQuantity(c.Request.Context(), httpx.UserID(c), c.Param("id"), in.Quantity)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "item updated", out)
	}
}

func removeItemHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.RemoveItem(c.Request.Context(), httpx.UserID(c), c.Param("id"))
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "item removed", out)
	}
}

func saveForLaterHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.SaveForLater(c.Request.Context(), httpx.UserID(c), c.Param("id"))
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "item saved for later", out)
	}
}

func moveToCartHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.MoveToCart(c.Request.Context(), httpx.UserID(c), c.Param("id"))
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "item moved to cart", out)
	}
}

func clearCartHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.Clear(c.Request.Context(), httpx.UserID(c))
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "cart cleared", out)
	}
}
