package price

import "slices"

// AdjustmentType classifies a price delta.
type AdjustmentType string

const (
	AdjustmentPromotion AdjustmentType = "promotion"
	AdjustmentTax       AdjustmentType = "tax"
	AdjustmentShipping  AdjustmentType = "shipping"
	AdjustmentFee       AdjustmentType = "fee"
	AdjustmentCustom    AdjustmentType = "custom"
)

// Adjustment is an immutable record describing a single price delta attached
// to an order or order item. It is a value object, not an entity: adjustments
// are created, combined into lists and discarded on every recalculation pass.
type Adjustment struct {
	Type     AdjustmentType `json:"type"`
	Label    string         `json:"label"`
	Amount   Price          `json:"amount"`
	SourceID string         `json:"source_id,omitempty"`
	// Percentage records the rate the amount was derived from, when any.
	Percentage string `json:"percentage,omitempty"`
	// Included marks an adjustment already reflected in the displayed unit
	// price (e.g. VAT-inclusive pricing).
	Included bool `json:"included"`
	// Locked forbids removal by later recalculation passes.
	Locked bool `json:"locked"`
}

// IsCharge reports whether the adjustment increases the total.
func (a Adjustment) IsCharge() bool { return a.Amount.IsPositive() }

// IsCredit reports whether the adjustment decreases the total.
func (a Adjustment) IsCredit() bool { return a.Amount.IsNegative() }

// Adjustments is an immutable list of adjustments. Helpers return new slices
// and never modify the receiver in place.
type Adjustments []Adjustment

// ByType returns the adjustments matching the given type, in order.
func (as Adjustments) ByType(t AdjustmentType) Adjustments {
	var out Adjustments
	for _, a := range as {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// Locked returns only the adjustments that later passes may not remove.
func (as Adjustments) Locked() Adjustments {
	var out Adjustments
	for _, a := range as {
		if a.Locked {
			out = append(out, a)
		}
	}
	return out
}

// Append returns a new list with the given adjustments added.
func (as Adjustments) Append(extra ...Adjustment) Adjustments {
	out := slices.Clone(as)
	return append(out, extra...)
}

// Total sums all adjustment amounts in the given currency. An empty list sums
// to zero; a foreign-currency entry fails with a currency mismatch.
func (as Adjustments) Total(currencyCode string) (Price, error) {
	total := Zero(currencyCode)
	for _, a := range as {
		sum, err := total.Add(a.Amount)
		if err != nil {
			return Price{}, err
		}
		total = sum
	}
	return total, nil
}
