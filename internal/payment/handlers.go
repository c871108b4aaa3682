package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/address"
	"github.com/MikeMC777/storefront/internal/coupon"
	"github.com/MikeMC777/storefront/internal/httpx"
)

func Register(r gin.IRouter, svc *Service) {
	r.POST("/payments/create-order", createOrderHandler(svc))
	r.POST("/payments/verify-payment", verifyPaymentHandler(svc))
	r.POST("/payments/failure", failureHandler(svc))
}

func writeErr(c *gin.Context, err error) {
	var (
		se *StockError
		ge *GatewayError
	)
	if code := coupon.Code(err); code != "" {
		httpx.Fail(c, http.StatusUnprocessableEntity, code, err.Error())
		return
	}
	switch {
	case errors.As(err, &se):
		httpx.FailWith(c, http.StatusConflict, "stock_issues", "some items are no longer available", se.Issues)
	case errors.Is(err, ErrAmountMismatch):
		httpx.Fail(c, http.StatusConflict, "amount_mismatch", err.Error())
	case errors.Is(err, ErrStockChanged):
		httpx.Fail(c, http.StatusConflict, "stock_changed", err.Error())
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrNothingToPay):
		httpx.Fail(c, http.StatusBadRequest, "invalid_order", err.Error())
	case errors.Is(err, ErrSignatureMismatch):
		httpx.Fail(c, http.StatusBadRequest, "signature_mismatch", err.Error())
	case errors.Is(err, address.ErrNotFound):
		httpx.Fail(c, http.StatusNotFound, "address_not_found", "shipping address not found")
	case errors.Is(err, ErrAttemptNotFound):
		httpx.Fail(c, http.StatusNotFound, "payment_not_found", "payment not found")
	case errors.As(err, &ge), errors.Is(err, ErrGatewayUnavailable):
		_ = c.Error(err)
		httpx.Fail(c, http.StatusBadGateway, "gateway_error", "payment gateway error, please try again")
	default:
		httpx.Internal(c, err)
	}
}

// @Summary Open a gateway order for the current cart
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body CreateOrderRequest true "amount, address and coupon"
// @Success 201 {object} httpx.Response{data=CreateOrderResponse}
// @Failure 409 {object} httpx.Response
// @Router /payments/create-order [post]
func createOrderHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in CreateOrderRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid_body", "invalid json")
			return
		}
		if in.AddressID == "" {
			httpx.Fail(c, http.StatusBadRequest, "invalid_body", "address_id is required")
			return
		}
		out, err := svc.CreateOrder(c.Request.Context(), httpx.UserID(c), in)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusCreated, "payment order created", out)
	}
}

// @Summary Verify the signed payment and place the order
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body VerifyRequest true "signed payment"
// @Success 200 {object} httpx.Response{data=VerifyResponse}
// @Failure 400 {object} httpx.Response
// @Router /payments/verify-payment [post]
func verifyPaymentHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in VerifyRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid_body", "invalid json")
			return
		}
		o, err := svc.VerifyPayment(c.Request.Context(), httpx.UserID(c), in)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "payment verified", VerifyResponse{Success: true, Order: o})
	}
}

// @Summary Report a cancelled or declined payment
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body FailureRequest true "failure details"
// @Success 200 {object} httpx.Response
// @Router /payments/failure [post]
func failureHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in FailureRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid_body", "invalid json")
			return
		}
		if err := svc.ReportFailure(c.Request.Context(), httpx.UserID(c), in); err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "failure recorded", nil)
	}
}
