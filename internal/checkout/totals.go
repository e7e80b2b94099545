package checkout

import (
	"github.com/shopspring/decimal"
)

// Totals is the itemized price breakdown written onto the order. All values
// are integer minor units.
type Totals struct {
	SubtotalCents int
	TaxCents      int
	ShippingCents int
	DiscountCents int
	TotalCents    int
}

// TotalsPolicy carries the flat tax and shipping rules applied at commit
// time.
type TotalsPolicy struct {
	TaxRate                    decimal.Decimal
	FreeShippingThresholdCents int
	FlatShippingFeeCents       int
}

// computeTotals derives the breakdown from the subtotal. Tax is computed
// once on the subtotal and rounded half up to whole cents; shipping is free
// at or above the threshold.
func computeTotals(subtotalCents, discountCents int, policy TotalsPolicy) Totals {
	tax := decimal.NewFromInt(int64(subtotalCents)).
		Mul(policy.TaxRate).
		Round(0)

	shipping := policy.FlatShippingFeeCents
	if subtotalCents >= policy.FreeShippingThresholdCents {
		shipping = 0
	}

	taxCents := int(tax.IntPart())
	return Totals{
		SubtotalCents: subtotalCents,
		TaxCents:      taxCents,
		ShippingCents: shipping,
		DiscountCents: discountCents,
		TotalCents:    subtotalCents + taxCents + shipping - discountCents,
	}
}
