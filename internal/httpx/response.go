package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/validate"
)

// Response is the envelope every endpoint answers with.
// swagger:model
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	// machine readable error code, only set on failures
	Code string `json:"code,omitempty"`
	Data any    `json:"data,omitempty"`
}

func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Code: code, Message: message})
}

// FailWith is Fail with a payload, e.g. the issue list of a failed stock check.
func FailWith(c *gin.Context, status int, code, message string, data any) {
	c.AbortWithStatusJSON(status, Response{Success: false, Code: code, Message: message, Data: data})
}

// Internal logs err against the request and answers 500 without leaking it.
func Internal(c *gin.Context, err error) {
	_ = c.Error(err)
	Fail(c, http.StatusInternalServerError, "internal_error", "internal error")
}

// BindJSON decodes the body into obj and checks its binding tags. On failure
// it answers 400, naming the offending field when there is one.
func BindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var fe *validate.FieldError
	if errors.As(validate.First(err), &fe) {
		FailWith(c, http.StatusBadRequest, "validation_error", fe.Error(), gin.H{"field": fe.Field})
		return false
	}
	Fail(c, http.StatusBadRequest, "invalid_body", "invalid json")
	return false
}
