/*
Package billing provides the core invoice arithmetic engine.

PURPOSE:
  This package contains the pure, side-effect free computations behind sales
  invoicing: line totals, invoice totals (subtotal, tax, grand total,
  remaining) and the customer balance snapshots recorded alongside each saved
  invoice.

KEY CONCEPTS IN THIS FILE (types.go):
  - LineItem: One row of an invoice (product, unit, quantity, unit price)
  - InvoiceDraft: An in-progress invoice being composed, not yet saved
  - InvoiceTotals: Derived figures, a pure function of the draft
  - BalanceSnapshot: Frozen balance view captured at save time

DESIGN PRINCIPLES:
  1. Purity: Nothing in this package performs I/O or holds state
  2. Precision: Uses decimal.Decimal to avoid floating-point errors;
     internal sums run at full precision, only tax is rounded to cents
  3. Immutability: A persisted BalanceSnapshot is a historical fact and is
     never re-derived from later customer state

USAGE:
  draft := billing.InvoiceDraft{TaxRatePercent: billing.ParseMoney("15")}
  draft, err := billing.AddLineItem(draft, stock, item)
  totals := billing.ComputeTotals(draft)
  snap := billing.ComputeSnapshot(customerBalance, totals, nil)

SEE ALSO:
  - totals.go: ComputeTotals and line-item merge rules
  - snapshot.go: Balance snapshot and running-balance delta
  - errors.go: Error taxonomy
*/
package billing

import (
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type CustomerID string
type InvoiceID string

// Unit names a sale unit of a product, e.g. "carton" or "piece".
// Products sell in up to two units related by a conversion factor; the
// catalog package owns that relationship.
type Unit string

// =============================================================================
// MONEY HELPERS
// =============================================================================

// ParseMoney parses a decimal string, returning zero on failure.
// Malformed numeric input is silently treated as zero rather than rejected.
func ParseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// MoneyFromFloat converts a float64 to decimal, mapping NaN and infinities
// to zero. All float input crosses through here so that non-finite values
// can never reach the arithmetic below.
func MoneyFromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// Round2 rounds to the currency's minimal precision (2 decimal places).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// =============================================================================
// LINE ITEM
// =============================================================================

type LineItem struct {
	ProductID ProductID
	Name      string
	Unit      Unit
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Total is the derived line total. It is recomputed from quantity and unit
// price on every use and never stored independently of its inputs.
func (li LineItem) Total() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// =============================================================================
// INVOICE DRAFT - Mutable, exists only while being composed
// =============================================================================

type InvoiceDraft struct {
	Items          []LineItem
	TaxRatePercent decimal.Decimal
	Shipping       decimal.Decimal
	Discount       decimal.Decimal
	PaidAmount     decimal.Decimal
}

// =============================================================================
// INVOICE TOTALS - Pure function of the draft
// =============================================================================

type InvoiceTotals struct {
	Subtotal   decimal.Decimal
	TaxAmount  decimal.Decimal
	GrandTotal decimal.Decimal

	// Remaining = GrandTotal - PaidAmount. Negative means the customer
	// overpaid and holds a credit.
	Remaining decimal.Decimal
}

// =============================================================================
// BALANCE SNAPSHOT - Frozen at save time, never recomputed
// =============================================================================

// BalanceSnapshot captures the customer's balance situation at the moment an
// invoice is saved. Once persisted these three fields are historical facts:
// they must never be re-derived from the customer's later balance. Editing an
// invoice reconstructs "balance before this invoice" by adding the invoice's
// previously recorded remaining back onto the customer's current balance
// (see ComputeSnapshot), not by replaying transaction history.
type BalanceSnapshot struct {
	// Customer balance immediately before this invoice took effect.
	OldBalance decimal.Decimal

	// OldBalance + GrandTotal.
	OldBalancePlusTotal decimal.Decimal

	// OldBalance + Remaining. This is a per-invoice historical display
	// value; when a customer has several invoices it is NOT the customer's
	// live running balance.
	NewBalance decimal.Decimal
}
