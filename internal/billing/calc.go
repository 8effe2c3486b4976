// Package billing computes invoice totals from line items and invoice-level
// overrides. All functions are stateless; rounding happens once per derived
// figure.
package billing

import (
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/money"
)

// Totals is the breakdown persisted back onto the invoice.
type Totals struct {
	Subtotal       float64
	TaxAmount      float64
	DiscountAmount float64
	Total          float64
}

// ComputeTotals derives subtotal, tax, discount and total.
//
// Ordering is load-bearing: line-level tax and discount are computed
// independently of the invoice-level ones; the invoice-level discount is
// taken on the undiscounted subtotal; the invoice-level tax applies to the
// discounted taxable amount. The final total is clamped at zero.
func ComputeTotals(items []domain.LineItem, taxRate float64, discountType domain.DiscountType, discountValue float64) Totals {
	var subtotal, lineTax, lineDiscount float64

	for _, item := range items {
		subtotal += item.Amount
		if item.TaxRate > 0 {
			lineTax += item.Amount * item.TaxRate / 100
		}
		if item.DiscountValue > 0 {
			if item.DiscountType == domain.DiscountPercentage {
				lineDiscount += item.Amount * item.DiscountValue / 100
			} else {
				lineDiscount += item.DiscountValue
			}
		}
	}

	var invoiceDiscount float64
	if discountValue > 0 {
		if discountType == domain.DiscountPercentage {
			invoiceDiscount = subtotal * discountValue / 100
		} else {
			invoiceDiscount = discountValue
		}
	}
	totalDiscount := lineDiscount + invoiceDiscount

	var invoiceTax float64
	if taxRate > 0 {
		invoiceTax = (subtotal - totalDiscount) * taxRate / 100
	}
	totalTax := lineTax + invoiceTax

	return Totals{
		Subtotal:       money.Round2(subtotal),
		TaxAmount:      money.Round2(totalTax),
		DiscountAmount: money.Round2(totalDiscount),
		Total:          money.Round2(money.ClampNonNegative(subtotal - totalDiscount + totalTax)),
	}
}

// LineAmount extends a quantity and rate into a line amount.
func LineAmount(quantity, rate float64) float64 {
	return money.Round2(quantity * rate)
}
