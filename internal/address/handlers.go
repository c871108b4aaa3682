package address

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/httpx"
	"github.com/MikeMC777/storefront/internal/validate"
)

func Register(r gin.IRouter, svc *Service) {
	r.GET("/addresses", listAddressesHandler(svc))
	r.POST("/addresses", createAddressHandler(svc))
	r.PUT("/addresses/:id", updateAddressHandler(svc))
	r.DELETE("/addresses/:id", deleteAddressHandler(svc))
	r.POST("/addresses/:id/default", setDefaultHandler(svc))
}

func writeErr(c *gin.Context, err error) {
	var fe *validate.FieldError
	switch {
	case errors.As(err, &fe):
		httpx.FailWith(c, http.StatusBadRequest, "validation_error", fe.Error(), gin.H{"field": fe.Field})
	case errors.Is(err, ErrNotFound):
		httpx.Fail(c, http.StatusNotFound, "not_found", "address not found")
	default:
		httpx.Internal(c, err)
	}
}

// @Summary List the user's addresses, default first
// @Tags Addresses
// @Security BearerAuth
// @Produce json
// @Success 200 {object} httpx.Response{data=[]Address}
// @Router /addresses [get]
func listAddressesHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.List(c.Request.Context(), httpx.UserID(c))
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "", out)
	}
}

// @Summary Save a new address
// @Tags Addresses
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body Input true "address"
// @Success 201 {object} httpx.Response{data=Address}
// @Failure 400 {object} httpx.Response
// @Router /addresses [post]
func createAddressHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in Input
		if !httpx.BindJSON(c, &in) {
			return
		}
		out, err := svc.Create(c.Request.Context(), httpx.UserID(c), in)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusCreated, "address saved", out)
	}
}

func updateAddressHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in Input
		if !httpx.BindJSON(c, &in) {
			return
		}
		out, err := svc.Update(c.Request.Context(), httpx.UserID(c), c.Param("id"), in)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "address updated", out)
	}
}

func deleteAddressHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), httpx.UserID(c), c.Param("id")); err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "address deleted", nil)
	}
}

// @Summary Make an address the default one
// @Tags Addresses
// @Security BearerAuth
// @Produce json
// @Param id path string true "address id"
// @Success 200 {object} httpx.Response{data=Address}
// @Router /addresses/{id}/default [post]
func setDefaultHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.SetDefault(c.Request.Context(), httpx.UserID(c), c.Param("id"))
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "default address updated", out)
	}
}
