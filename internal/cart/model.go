package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

type LineItem struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	VariantSKU    string          `json:"variant_sku"`
	Title         string          `json:"title"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Size          string          `json:"size,omitempty"`
	Color         string          `json:"color,omitempty"`
	Category      string          `json:"category,omitempty"`
	Quantity      int             `json:"quantity"`
	SavedForLater bool            `json:"saved_for_later"`
}

func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	ItemCount  int             `json:"item_count"`
	SavedCount int             `json:"saved_count"`
}

type Cart struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Items        []LineItem `json:"items"`
	Totals       Totals     `json:"totals"`
	LastActivity time.Time  `json:"last_activity"`
	// optimistic concurrency token, bumped by every save
	Version int64 `json:"-"`
}

// Recalculate refreshes Totals from Items. Saved-for-later lines only count
// towards SavedCount.
func (c *Cart) Recalculate() {
	t := Totals{Subtotal: decimal.Zero}
	for _, it := range c.Items {
		if it.SavedForLater {
			t.SavedCount++
			continue
		}
		t.Subtotal = t.Subtotal.Add(it.LineTotal())
		t.ItemCount += it.Quantity
	}
	c.Totals = t
}

func (c *Cart) index(itemID string) int {
	for i, it := range c.Items {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) activeBySKU(sku string) int {
	for i, it := range c.Items {
		if !it.SavedForLater && it.VariantSKU == sku {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// ActiveItems returns the lines that will be bought at checkout.
func (c *Cart) ActiveItems() []LineItem {
	out := make([]LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		if !it.SavedForLater {
			out = append(out, it)
		}
	}
	return out
}

// Item looks a line up by id.
func (c *Cart) Item(itemID string) (LineItem, bool) {
	if i := c.index(itemID); i >= 0 {
		return c.Items[i], true
	}
	return LineItem{}, false
}

// AddItemRequest payload for POST /cart/items.
// swagger:model AddItemRequest
type AddItemRequest struct {
	VariantSKU string `json:"variant_sku" example:"TSHIRT-RED-M" binding:"required"`
	Quantity   int    `json:"quantity"    example:"1"`
}

// UpdateItemRequest payload for PUT /cart/items/{id}.
// swagger:model UpdateItemRequest
type UpdateItemRequest struct {
	Quantity int `json:"quantity" example:"2"`
}
