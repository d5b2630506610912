package purchasing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/PPA-BE/Orders-At-Peak/internal/money"
)

// HSTRate is the fixed regional sales tax applied to the subtotal.
var HSTRate = decimal.RequireFromString("0.13")

// PaidSuffix is appended to the stored status once the PO is marked paid.
const PaidSuffix = " (Paid)"

// StatusLabel derives the display label from the stored status and paid
// timestamp. Partial payments are not reflected.
func StatusLabel(status string, paidAt *time.Time) string {
	if paidAt == nil {
		return status
	}
	return status + PaidSuffix
}

// Totals are the figures derived from line items.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Grand    decimal.Decimal
}

// ComputeTotals sums quantity x unit price per line, then applies rate once to
// the subtotal, rounding the tax half-up to cents.
func ComputeTotals(items []LineItem, rate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	tax := money.Round2(subtotal.Mul(rate))
	return Totals{Subtotal: subtotal, Tax: tax, Grand: subtotal.Add(tax)}
}

// Reconcile returns the paid-to-date sum and the remaining balance, floored at zero.
func Reconcile(total decimal.Decimal, payments []Payment) (decimal.Decimal, decimal.Decimal) {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return paid, Remaining(total, paid)
}

// Remaining is total minus paid, never negative.
func Remaining(total, paid decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, total.Sub(paid))
}
