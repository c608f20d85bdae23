// Package pricing derives sale totals from cart state. The calculation is a
// pure function: identical input always yields identical totals, with no
// side effects, so it can run on every render of the terminal UI.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/viorhealth/pos-terminal/internal/domain/cart"
)

// DefaultVATRate is the 18% VAT applied when tax is enabled for a sale.
// The rate is a deployment parameter, not business logic: construct the
// Calculator with whatever rate the deployment requires.
var DefaultVATRate = decimal.New(18, -2)

// Totals holds the derived monetary figures for a cart.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	// Total is subtotal + tax - discount. A discount larger than
	// subtotal + tax drives it negative; that is deliberately not clamped,
	// matching the behaviour the backend sees today.
	Total  decimal.Decimal
	Change decimal.Decimal
}

// Calculator derives Totals using a fixed VAT rate.
type Calculator struct {
	vatRate decimal.Decimal
}

// New returns a Calculator with the given VAT rate (0.18 for 18%).
func New(vatRate decimal.Decimal) Calculator {
	return Calculator{vatRate: vatRate}
}

// Totals computes the totals for the given cart state. Tax is rounded to two
// decimal places for display parity with the backend.
func (c Calculator) Totals(st cart.State) Totals {
	subtotal := decimal.Zero
	for _, line := range st.Lines {
		subtotal = subtotal.Add(line.Total())
	}

	tax := decimal.Zero
	if st.ApplyTax {
		tax = subtotal.Mul(c.vatRate).Round(2)
	}

	total := subtotal.Add(tax).Sub(st.Discount)

	change := st.AmountPaid.Sub(total)
	if change.IsNegative() {
		change = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: st.Discount,
		Total:    total,
		Change:   change,
	}
}
