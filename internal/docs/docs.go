// Package docs registers the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/products": {"get": {"tags": ["catalog"], "summary": "List products", "responses": {"200": {"description": "OK"}}}},
        "/products/{id}": {"get": {"tags": ["catalog"], "summary": "Get product", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/cart": {"get": {"security": [{"BearerAuth": []}], "tags": ["cart"], "summary": "Get the caller's cart", "responses": {"200": {"description": "OK"}}}},
        "/cart/items": {"post": {"security": [{"BearerAuth": []}], "tags": ["cart"], "summary": "Add a variant to the cart", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/cart/items/{id}": {"put": {"security": [{"BearerAuth": []}], "tags": ["cart"], "summary": "Change a line quantity", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/cart/validate": {"post": {"security": [{"BearerAuth": []}], "tags": ["cart"], "summary": "Re-check stock for the active cart", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/StockResult"}}}}},
        "/coupons/validate": {"post": {"security": [{"BearerAuth": []}], "tags": ["coupons"], "summary": "Validate a coupon", "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ValidateRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/CouponResult"}}, "422": {"description": "Unprocessable Entity"}}}},
        "/coupons/auto-apply": {"post": {"security": [{"BearerAuth": []}], "tags": ["coupons"], "summary": "Find the best applicable coupon", "responses": {"200": {"description": "OK"}}}},
        "/addresses": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["addresses"], "summary": "List addresses", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["addresses"], "summary": "Create address", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}
        },
        "/addresses/{id}/default": {"post": {"security": [{"BearerAuth": []}], "tags": ["addresses"], "summary": "Make an address the default", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/payments/create-order": {"post": {"security": [{"BearerAuth": []}], "tags": ["payments"], "summary": "Create a gateway order for the cart", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}, "502": {"description": "Bad Gateway"}}}},
        "/payments/verify-payment": {"post": {"security": [{"BearerAuth": []}], "tags": ["payments"], "summary": "Verify a signed payment and place the order", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/payments/failure": {"post": {"security": [{"BearerAuth": []}], "tags": ["payments"], "summary": "Report a cancelled or declined payment", "responses": {"200": {"description": "OK"}}}},
        "/orders": {"get": {"security": [{"BearerAuth": []}], "tags": ["orders"], "summary": "List the caller's orders", "responses": {"200": {"description": "OK"}}}},
        "/orders/{id}": {"get": {"security": [{"BearerAuth": []}], "tags": ["orders"], "summary": "Get an order", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/admin/orders/{id}/status": {"put": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Move an order to a new status", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/admin/coupons": {"post": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Create coupon", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/admin/products": {"post": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Create product with variants", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/admin/products/{id}": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Update product", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Delete product", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/admin/products/{id}/variants/{sku}": {"put": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Set variant price, stock and active flag", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "sku", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}}}
    },
    "definitions": {
        "ValidateRequest": {"type": "object", "properties": {"code": {"type": "string", "example": "SAVE10"}, "order_amount": {"type": "string", "example": "300"}}},
        "CouponResult": {"type": "object", "properties": {"code": {"type": "string"}, "discount_type": {"type": "string"}, "discount_applied": {"type": "string"}, "final_amount": {"type": "string"}, "free_shipping": {"type": "boolean"}}},
        "StockResult": {"type": "object", "properties": {"valid": {"type": "boolean"}, "issues": {"type": "array", "items": {"type": "object"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8082",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Storefront API",
	Description:      "Cart, coupons, addresses, payments and orders of the storefront checkout.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
