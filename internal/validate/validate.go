// Package validate runs the `binding` struct tags on gin's validator engine,
// so request handlers and the checkout client share one set of rules, and
// reports the first failing field by its JSON name.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Configure(v)
	}
}

// Configure reports fields by their json name, lets numeric tags
// (gte, gt, ...) apply to decimal amounts and adds the "phone" tag.
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonName)
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
	_ = v.RegisterValidation("phone", phone)
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

func decimalValue(f reflect.Value) any {
	switch d := f.Interface().(type) {
	case decimal.Decimal:
		v, _ := d.Float64()
		return v
	case decimal.NullDecimal:
		if !d.Valid {
			return nil
		}
		v, _ := d.Decimal.Float64()
		return v
	}
	return nil
}

// phone accepts any formatting with at least seven digits.
func phone(fl validator.FieldLevel) bool {
	n := 0
	for _, r := range fl.Field().String() {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n >= 7
}

// FieldError is the first failing field of a validated struct.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

func (e *FieldError) Error() string { return e.Field + " " + e.Message }

// Struct validates s against its binding tags; failures come back as *FieldError.
func Struct(s any) error {
	return First(binding.Validator.ValidateStruct(s))
}

// First turns validator failures in err into a *FieldError for the first
// failing field and returns any other error unchanged.
func First(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}
	fe := ve[0]
	return &FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}
