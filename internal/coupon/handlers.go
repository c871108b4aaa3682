package coupon

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/httpx"
	"github.com/MikeMC777/storefront/internal/validate"
)

// Register mounts the customer endpoints on r and the admin ones on admin.
func Register(r, admin gin.IRouter, svc *Service) {
	r.POST("/coupons/validate", validateHandler(svc))
	r.POST("/coupons/auto-apply", autoApplyHandler(svc))

	admin.GET("/coupons", listCouponsHandler(svc))
	admin.POST("/coupons", createCouponHandler(svc))
	admin.PUT("/coupons/:code", updateCouponHandler(svc))
	admin.DELETE("/coupons/:code", deactivateCouponHandler(svc))
}

func writeErr(c *gin.Context, err error) {
	if code := Code(err); code != "" {
		httpx.Fail(c, http.StatusUnprocessableEntity, code, err.Error())
		return
	}
	var fe *validate.FieldError
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(c, http.StatusNotFound, "not_found", "coupon not found")
	case errors.Is(err, ErrAlreadyExists):
		httpx.Fail(c, http.StatusConflict, "already_exists", "coupon code already exists")
	case errors.As(err, &fe):
		httpx.FailWith(c, http.StatusBadRequest, "validation_error", fe.Error(), gin.H{"field": fe.Field})
	case errors.Is(err, ErrInvalidInput):
		httpx.Fail(c, http.StatusBadRequest, "invalid_body", err.Error())
	default:
		httpx.Internal(c, err)
	}
}

// @Summary Validate a coupon against an order amount
// @Tags Coupons
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body ValidateRequest true "coupon and order"
// @Success 200 {object} httpx.Response{data=Result}
// @Failure 422 {object} httpx.Response
// @Router /coupons/validate [post]
func validateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ValidateRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid_body", "invalid json")
			return
		}
		res, err := svc.Validate(c.Request.Context(), httpx.UserID(c), in)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "coupon applied", res)
	}
}

// @Summary Pick the best coupon for the current order
// @Tags Coupons
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body AutoApplyRequest true "order"
// @Success 200 {object} httpx.Response{data=Result}
// @Router /coupons/auto-apply [post]
func autoApplyHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in AutoApplyRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid_body", "invalid json")
			return
		}
		res, ok, err := svc.AutoApply(c.Request.Context(), httpx.UserID(c), in)
		if err != nil {
			writeErr(c, err)
			return
		}
		if !ok {
			httpx.OK(c, http.StatusOK, "no applicable coupon", nil)
			return
		}
		httpx.OK(c, http.StatusOK, "coupon applied", res)
	}
}

func listCouponsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		out, err := svc.List(c.Request.Context(), limit, offset)
		if err != nil {
			writeErr(c, err)
			return
		}
		if out == nil {
			out = []Coupon{}
		}
		httpx.OK(c, http.StatusOK, "", out)
	}
}

// @Summary Create a coupon
// @Tags Admin - Coupons
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body UpsertRequest true "coupon"
// @Success 201 {object} httpx.Response{data=Coupon}
// @Router /admin/coupons [post]
func createCouponHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in UpsertRequest
		if !httpx.BindJSON(c, &in) {
			return
		}
		out, err := svc.Create(c.Request.Context(), in)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusCreated, "coupon created", out)
	}
}

func updateCouponHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// the path names the coupon; the body may omit the code
		in := UpsertRequest{Code: c.Param("code")}
		if !httpx.BindJSON(c, &in) {
			return
		}
		out, err := svc.Update(c.Request.Context(), c.Param("code"), in)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "coupon updated", out)
	}
}

func deactivateCouponHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Deactivate(c.Request.Context(), c.Param("code")); err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "coupon deactivated", nil)
	}
}
