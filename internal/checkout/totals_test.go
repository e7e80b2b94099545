package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeTotals(t *testing.T) {
	t.Parallel()

	policy := defaultPolicy()

	cases := []struct {
		name     string
		subtotal int
		discount int
		want     Totals
	}{
		{
			name:     "free shipping at threshold",
			subtotal: 2000,
			want:     Totals{SubtotalCents: 2000, TaxCents: 360, ShippingCents: 0, TotalCents: 2360},
		},
		{
			name:     "flat fee below threshold",
			subtotal: 1000,
			want:     Totals{SubtotalCents: 1000, TaxCents: 180, ShippingCents: 500, TotalCents: 1680},
		},
		{
			name:     "tax rounds half up",
			subtotal: 25,
			want:     Totals{SubtotalCents: 25, TaxCents: 5, ShippingCents: 500, TotalCents: 530},
		},
		{
			name:     "discount subtracts from total",
			subtotal: 2000,
			discount: 300,
			want:     Totals{SubtotalCents: 2000, TaxCents: 360, ShippingCents: 0, DiscountCents: 300, TotalCents: 2060},
		},
		{
			name: "zero subtotal",
			want: Totals{ShippingCents: 500, TotalCents: 500},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := computeTotals(tc.subtotal, tc.discount, policy)
			if got != tc.want {
				t.Fatalf("computeTotals(%d, %d) = %+v, want %+v", tc.subtotal, tc.discount, got, tc.want)
			}
		})
	}
}

func TestComputeTotalsZeroRate(t *testing.T) {
	t.Parallel()

	policy := TotalsPolicy{TaxRate: decimal.Zero, FreeShippingThresholdCents: 2000, FlatShippingFeeCents: 500}
	got := computeTotals(3000, 0, policy)
	if got.TaxCents != 0 || got.TotalCents != 3000 {
		t.Fatalf("unexpected totals with zero rate: %+v", got)
	}
}
