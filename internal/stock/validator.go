// Package stock re-checks live inventory for the lines of a cart right before
// payment and plans the quantity adjustments that resolve a shortage.
package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/catalog"
)

type IssueType string

const (
	InsufficientStock  IssueType = "insufficient_stock"
	ProductUnavailable IssueType = "product_unavailable"
)

// Issue describes one cart line that cannot be bought as requested.
type Issue struct {
	Type   IssueType `json:"type"`
	ItemID string    `json:"item_id"`
	// only set for insufficient_stock
	AvailableQuantity *int   `json:"available_quantity,omitempty"`
	Message           string `json:"message"`
}

// Result of POST /cart/validate.
// swagger:model StockResult
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Messages flattens the issues for display.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Issues))
	for _, is := range r.Issues {
		out = append(out, is.Message)
	}
	return out
}

type Validator struct {
	catalog catalog.Reader
}

func NewValidator(cat catalog.Reader) *Validator {
	return &Validator{catalog: cat}
}

// Validate checks every active line of c against the catalog. Saved-for-later
// lines are not part of the order and are skipped.
func (v *Validator) Validate(ctx context.Context, c *cart.Cart) (Result, error) {
	res := Result{Valid: true, Issues: []Issue{}}
	for _, it := range c.ActiveItems() {
		variant, err := v.catalog.GetVariant(ctx, it.VariantSKU)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			res.Issues = append(res.Issues, unavailable(it))
			continue
		case err != nil:
			return Result{}, fmt.Errorf("stock for %s: %w", it.VariantSKU, err)
		}
		if !variant.Active {
			res.Issues = append(res.Issues, unavailable(it))
			continue
		}
		if variant.Stock < it.Quantity {
			avail := max(variant.Stock, 0)
			res.Issues = append(res.Issues, Issue{
				Type:              InsufficientStock,
				ItemID:            it.ID,
				AvailableQuantity: &avail,
				Message:           shortageMessage(it, avail),
			})
		}
	}
	res.Valid = len(res.Issues) == 0
	return res, nil
}

func unavailable(it cart.LineItem) Issue {
	return Issue{
		Type:    ProductUnavailable,
		ItemID:  it.ID,
		Message: fmt.Sprintf("%s is no longer available", it.Title),
	}
}

func shortageMessage(it cart.LineItem, avail int) string {
	if avail == 0 {
		return fmt.Sprintf("%s is out of stock", it.Title)
	}
	return fmt.Sprintf("only %d of %s left in stock, you requested %d", avail, it.Title, it.Quantity)
}
