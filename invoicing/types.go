/*
Package invoicing orchestrates the invoice lifecycle around the pure billing
engine: composing drafts from catalog data, persisting invoices with their
frozen balance snapshots, and keeping customer balances and product stock in
step through save, edit, and delete.

KEY CONCEPTS IN THIS FILE (types.go):
  - Customer: A buyer with a live running balance
  - Invoice: A persisted invoice, its totals and its frozen snapshot

SNAPSHOT NULLABILITY:
  Invoice.Snapshot is a pointer: legacy rows saved before snapshots were
  recorded have none. DisplaySnapshot documents the single fallback path for
  those rows instead of branching on field presence at every call site.

SEE ALSO:
  - service.go: Save/edit/delete orchestration
  - store.go: Persistence contracts
  - filter.go: In-memory filtering and pagination of record sets
*/
package invoicing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/M7sN2/asilsys-server/billing"
)

// =============================================================================
// CUSTOMER
// =============================================================================

// Customer is a buyer. Balance is the live running total of what they owe
// (negative = credit); it changes only through billing.ApplyBalanceDelta
// inside the service.
type Customer struct {
	ID      billing.CustomerID
	Name    string
	Phone   string
	Address string
	Balance decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// INVOICE
// =============================================================================

// Invoice is a persisted sales invoice. Totals and Snapshot are written once
// at save time; a later edit replaces them with freshly computed values but
// never re-derives the snapshot from post-hoc customer state.
type Invoice struct {
	ID     billing.InvoiceID
	Number int64

	CustomerID billing.CustomerID
	Items      []billing.LineItem

	TaxRatePercent decimal.Decimal
	Shipping       decimal.Decimal
	Discount       decimal.Decimal
	PaidAmount     decimal.Decimal

	Totals billing.InvoiceTotals

	// Snapshot is nil for legacy rows that predate snapshot recording.
	Snapshot *billing.BalanceSnapshot

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Draft reconstructs the composition-time draft for this invoice, used when
// an edit needs to recompute totals from scratch.
func (inv Invoice) Draft() billing.InvoiceDraft {
	items := make([]billing.LineItem, len(inv.Items))
	copy(items, inv.Items)
	return billing.InvoiceDraft{
		Items:          items,
		TaxRatePercent: inv.TaxRatePercent,
		Shipping:       inv.Shipping,
		Discount:       inv.Discount,
		PaidAmount:     inv.PaidAmount,
	}
}

// DisplaySnapshot returns the recorded snapshot. For legacy rows without one
// it falls back to reconstructing the view from the customer's current
// balance, undoing this invoice's own remaining - the same rule edits use.
// The fallback is display-only and is never written back.
func (inv Invoice) DisplaySnapshot(currentCustomerBalance decimal.Decimal) billing.BalanceSnapshot {
	if inv.Snapshot != nil {
		return *inv.Snapshot
	}
	remaining := inv.Totals.Remaining
	return billing.ComputeSnapshot(currentCustomerBalance, inv.Totals, &remaining)
}
