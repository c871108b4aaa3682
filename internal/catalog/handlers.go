package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/httpx"
)

func Register(r, admin gin.IRouter, repo Repository) {
	r.GET("/products", listProductsHandler(repo))
	r.GET("/products/:id", getProductHandler(repo))

	admin.POST("/products", createProductHandler(repo))
	admin.PUT("/products/:id", updateProductHandler(repo))
	admin.DELETE("/products/:id", deleteProductHandler(repo))
	admin.PUT("/products/:id/variants/:sku", upsertVariantHandler(repo))
}

func writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(c, http.StatusNotFound, "not_found", "product not found")
	case errors.Is(err, ErrSKUTaken):
		httpx.Fail(c, http.StatusConflict, "sku_taken", err.Error())
	default:
		httpx.Internal(c, err)
	}
}

// @Summary List products
// @Tags Products
// @Produce json
// @Param q query string false "search text"
// @Param category query string false "category filter"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} httpx.Response{data=ListResponse}
// @Router /products [get]
func listProductsHandler(repo Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		q := Query{Q: c.Query("q"), Category: c.Query("category"), Limit: limit, Offset: offset}

		items, err := repo.List(c.Request.Context(), q)
		if err != nil {
			httpx.Internal(c, err)
			return
		}
		if items == nil {
			items = []Product{}
		}
		httpx.OK(c, http.StatusOK, "", ListResponse{Q: q.Q, Limit: limit, Offset: offset, Items: items})
	}
}

// @Summary Get a product with its variants
// @Tags Products
// @Produce json
// @Param id path string true "product id"
// @Success 200 {object} httpx.Response{data=Product}
// @Failure 404 {object} httpx.Response
// @Router /products/{id} [get]
func getProductHandler(repo Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "", p)
	}
}

// @Summary Create a product with its variants (admin)
// @Tags Products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body CreateProductRequest true "product"
// @Success 201 {object} httpx.Response{data=Product}
// @Failure 400 {object} httpx.Response
// @Failure 409 {object} httpx.Response
// @Router /admin/products [post]
func createProductHandler(repo Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in CreateProductRequest
		if !httpx.BindJSON(c, &in) {
			return
		}
		p := in.product()
		if err := repo.Create(c.Request.Context(), p); err != nil {
			writeErr(c, err)
			return
		}
		out, err := repo.GetByID(c.Request.Context(), p.ID)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusCreated, "product created", out)
	}
}

// @Summary Update product fields (admin)
// @Tags Products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "product id"
// @Param body body UpdateProductRequest true "fields to change"
// @Success 200 {object} httpx.Response{data=Product}
// @Failure 404 {object} httpx.Response
// @Router /admin/products/{id} [put]
func updateProductHandler(repo Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in UpdateProductRequest
		if !httpx.BindJSON(c, &in) {
			return
		}
		id := c.Param("id")
		if err := repo.Update(c.Request.Context(), id, in); err != nil {
			writeErr(c, err)
			return
		}
		out, err := repo.GetByID(c.Request.Context(), id)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "product updated", out)
	}
}

// @Summary Delete a product and its variants (admin)
// @Tags Products
// @Security BearerAuth
// @Param id path string true "product id"
// @Produce json
// @Success 200 {object} httpx.Response
// @Failure 404 {object} httpx.Response
// @Router /admin/products/{id} [delete]
func deleteProductHandler(repo Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := repo.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Internal(c, err)
			return
		}
		if !ok {
			writeErr(c, ErrNotFound)
			return
		}
		httpx.OK(c, http.StatusOK, "product deleted", nil)
	}
}

// @Summary Set a variant's price, stock and active flag (admin)
// @Tags Products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "product id"
// @Param sku path string true "variant sku"
// @Param body body VariantInput true "variant"
// @Success 200 {object} httpx.Response{data=Variant}
// @Failure 404 {object} httpx.Response
// @Failure 409 {object} httpx.Response
// @Router /admin/products/{id}/variants/{sku} [put]
func upsertVariantHandler(repo Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		// the path names the variant; the body may omit the sku
		in := VariantInput{SKU: c.Param("sku")}
		if !httpx.BindJSON(c, &in) {
			return
		}
		in.SKU = c.Param("sku")
		v, err := repo.UpsertVariant(c.Request.Context(), c.Param("id"), in)
		if err != nil {
			writeErr(c, err)
			return
		}
		httpx.OK(c, http.StatusOK, "variant saved", v)
	}
}
