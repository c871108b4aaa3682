package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Active      bool      `json:"active"`
	Variants    []Variant `json:"variants"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Variant is one sellable size/color combination, identified by its SKU.
type Variant struct {
	SKU       string          `json:"sku"`
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Category  string          `json:"category,omitempty"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	// false when either the variant or its product has been retired
	Active bool `json:"active"`
}

// ListResponse represents the paginated response of products.
// swagger:model
type ListResponse struct {
	Q      string    `json:"q,omitempty"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Items  []Product `json:"items"`
}

// CreateProductRequest is the admin payload for POST /admin/products.
type CreateProductRequest struct {
	Name        string         `json:"name"        binding:"required,max=200" example:"Classic tee"`
	Description string         `json:"description" binding:"max=2000"`
	Category    string         `json:"category"    binding:"max=80"           example:"tees"`
	Variants    []VariantInput `json:"variants"    binding:"dive"`
}

// UpdateProductRequest leaves blank fields unchanged.
type UpdateProductRequest struct {
	Name        string `json:"name"        binding:"max=200"`
	Description string `json:"description" binding:"max=2000"`
	Category    string `json:"category"    binding:"max=80"`
	Active      *bool  `json:"active"`
}

// VariantInput sets one variant's price, stock and active flag.
type VariantInput struct {
	SKU    string          `json:"sku"    binding:"required,max=64" example:"TEE-RED-M"`
	Size   string          `json:"size"   example:"M"`
	Color  string          `json:"color"  example:"red"`
	Price  decimal.Decimal `json:"price"  binding:"gte=0"           example:"499"`
	Stock  int             `json:"stock"  binding:"gte=0"           example:"10"`
	Active *bool           `json:"active"`
}

func (in CreateProductRequest) product() *Product {
	p := &Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    in.Category,
		Active:      true,
		Variants:    make([]Variant, 0, len(in.Variants)),
	}
	for _, v := range in.Variants {
		p.Variants = append(p.Variants, Variant{
			SKU: strings.TrimSpace(v.SKU), Title: p.Name, Category: p.Category,
			Size: v.Size, Color: v.Color, Price: v.Price, Stock: v.Stock,
			Active: v.Active == nil || *v.Active,
		})
	}
	return p
}
