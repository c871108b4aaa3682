package stock

// Adjustment is a cart change that resolves one shortage. Remove is set when
// nothing is left; otherwise Quantity is the new line quantity.
type Adjustment struct {
	ItemID   string
	Quantity int
	Remove   bool
}

// PlanRecovery turns insufficient_stock issues into adjustments. Issues without
// an available quantity (unavailable products) have no automatic fix and are
// left for the caller to report.
func PlanRecovery(issues []Issue) []Adjustment {
	var out []Adjustment
	for _, is := range issues {
		if is.Type != InsufficientStock || is.AvailableQuantity == nil {
			continue
		}
		if n := *is.AvailableQuantity; n > 0 {
			out = append(out, Adjustment{ItemID: is.ItemID, Quantity: n})
		} else {
			out = append(out, Adjustment{ItemID: is.ItemID, Remove: true})
		}
	}
	return out
}
