package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/httpx"
)

func Register(r, admin gin.IRouter, svc *Service) {
	r.GET("/orders", listOrdersHandler(svc))
	r.GET("/orders/:id", getOrderHandler(svc))
	admin.PUT("/orders/:id/status", updateOrderStatusHandler(svc))
}

func writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(c, http.StatusNotFound, "not_found", "order not found")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Fail(c, http.StatusBadRequest, "invalid_status", err.Error())
	default:
		httpx.Internal(c, err)
	}
}

// @Summary List the user's orders, newest first
// @Tags Orders
// @Security BearerAuth
// @Produce json
// @Param limit query int false "page size" default(20)
// @Param offset query int false "offset" default(0)
// @Success 200 {object} httpx.Response{data=[]Order}
// @Router /orders [get]
func listOrdersHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		out, err := svc.List(c.Request.Context(), httpx.UserID(c), limit, offset)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "", out)
	}
}

// @Summary Get one order
// @Tags Orders
// @Security BearerAuth
// @Produce json
// @Param id path string true "order id"
// @Success 200 {object} httpx.Response{data=Order}
// @Failure 404 {object} httpx.Response
// @Router /orders/{id} [get]
func getOrderHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.Get(c.Request.Context(), httpx.UserID(c), c.Param("id"))
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "", out)
	}
}

// @Summary Move an order to a new status
// @Tags Admin - Orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "order id"
// @Param body body UpdateStatusRequest true "status"
// @Success 200 {object} httpx.Response{data=Order}
// @Failure 400 {object} httpx.Response
// @Router /admin/orders/{id}/status [put]
func updateOrderStatusHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in UpdateStatusRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid_body", "invalid json")
			return
		}
		out, err := svc.UpdateStatus(c.Request.Context(), c.Param("id"), in.Status)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "order status updated", out)
	}
}
