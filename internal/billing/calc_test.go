package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openclerk/backoffice/internal/domain"
)

func items(amounts ...float64) []domain.LineItem {
	out := make([]domain.LineItem, len(amounts))
	for i, a := range amounts {
		out[i] = domain.LineItem{Description: "work", Quantity: 1, Rate: a, Amount: a}
	}
	return out
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name          string
		items         []domain.LineItem
		taxRate       float64
		discountType  domain.DiscountType
		discountValue float64
		want          Totals
	}{
		{
			name:  "plain sum",
			items: items(400, 600),
			want:  Totals{Subtotal: 1000, Total: 1000},
		},
		{
			name:          "discount before invoice tax",
			items:         items(1000),
			taxRate:       8,
			discountType:  domain.DiscountPercentage,
			discountValue: 10,
			want:          Totals{Subtotal: 1000, DiscountAmount: 100, TaxAmount: 72, Total: 972},
		},
		{
			name:          "fixed discount",
			items:         items(500),
			discountType:  domain.DiscountFixed,
			discountValue: 50,
			want:          Totals{Subtotal: 500, DiscountAmount: 50, Total: 450},
		},
		{
			name: "per-line tax independent of invoice discount",
			items: []domain.LineItem{
				{Description: "design", Quantity: 1, Rate: 200, Amount: 200, TaxRate: 10},
				{Description: "dev", Quantity: 1, Rate: 800, Amount: 800},
			},
			discountType:  domain.DiscountPercentage,
			discountValue: 10,
			// Line tax is 20 on the undiscounted line amount; invoice
			// discount is 100 on the full subtotal.
			want: Totals{Subtotal: 1000, TaxAmount: 20, DiscountAmount: 100, Total: 920},
		},
		{
			name: "per-line discounts add to invoice discount",
			items: []domain.LineItem{
				{Description: "a", Quantity: 1, Rate: 100, Amount: 100, DiscountType: domain.DiscountPercentage, DiscountValue: 10},
				{Description: "b", Quantity: 1, Rate: 100, Amount: 100, DiscountType: domain.DiscountFixed, DiscountValue: 5},
			},
			discountType:  domain.DiscountFixed,
			discountValue: 15,
			want:          Totals{Subtotal: 200, DiscountAmount: 30, Total: 170},
		},
		{
			name: "line and invoice tax combine on discounted base",
			items: []domain.LineItem{
				{Description: "a", Quantity: 1, Rate: 1000, Amount: 1000, TaxRate: 5},
			},
			taxRate:       8,
			discountType:  domain.DiscountPercentage,
			discountValue: 10,
			// line tax 50 + invoice tax 8% of 900 = 72 -> 122
			want: Totals{Subtotal: 1000, TaxAmount: 122, DiscountAmount: 100, Total: 1022},
		},
		{
			name:          "total clamped at zero",
			items:         items(100),
			discountType:  domain.DiscountFixed,
			discountValue: 250,
			want:          Totals{Subtotal: 100, DiscountAmount: 250, Total: 0},
		},
		{
			name: "empty items",
			want: Totals{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(tt.items, tt.taxRate, tt.discountType, tt.discountValue)
			assert.InDelta(t, tt.want.Subtotal, got.Subtotal, 1e-9, "subtotal")
			assert.InDelta(t, tt.want.TaxAmount, got.TaxAmount, 1e-9, "tax")
			assert.InDelta(t, tt.want.DiscountAmount, got.DiscountAmount, 1e-9, "discount")
			assert.InDelta(t, tt.want.Total, got.Total, 1e-9, "total")
		})
	}
}

func TestLineAmount(t *testing.T) {
	assert.InDelta(t, 637.5, LineAmount(8.5, 75), 1e-9)
	assert.InDelta(t, 0.33, LineAmount(1.0/3.0, 1), 1e-9)
}
