/*
snapshot.go - Balance snapshot calculation and running-balance delta

PURPOSE:
  Computes the frozen balance view recorded with every saved invoice, and
  the single place where a customer's live running balance changes.

THE ONE TRUE INVARIANT:
  A persisted snapshot is never recomputed from later customer state. When
  an invoice is edited, the balance "before this invoice" is reconstructed
  by undoing the invoice's own prior contribution:

    oldBalance = currentCustomerBalance + previousInvoiceRemaining

  This intentionally produces figures that differ from the customer's live
  running balance when multiple invoices exist. The snapshot's NewBalance is
  a per-invoice historical display value; the live balance evolves only
  through ApplyBalanceDelta.

CALLER OBLIGATIONS:
  These functions are pure. The caller must serialize the surrounding
  read-compute-write sequence against the customer balance (one save in
  flight per customer) and must pass a freshly read, authoritative balance.
  The invoicing service runs the whole sequence in one store transaction.

SEE ALSO:
  - totals.go: Where Remaining comes from
  - invoicing/service.go: The orchestration around these calls
*/
package billing

import "github.com/shopspring/decimal"

// ComputeSnapshot freezes the balance view for an invoice about to be saved.
//
// previousInvoiceRemaining is nil for a brand new invoice, in which case the
// customer's current balance IS the old balance. For an edit it must be the
// remaining previously stored on the invoice being edited; the prior
// contribution is added back to reconstruct the pre-invoice balance.
func ComputeSnapshot(currentCustomerBalance decimal.Decimal, totals InvoiceTotals, previousInvoiceRemaining *decimal.Decimal) BalanceSnapshot {
	oldBalance := currentCustomerBalance
	if previousInvoiceRemaining != nil {
		oldBalance = oldBalance.Add(*previousInvoiceRemaining)
	}

	return BalanceSnapshot{
		OldBalance:          oldBalance,
		OldBalancePlusTotal: oldBalance.Add(totals.GrandTotal),
		NewBalance:          oldBalance.Add(totals.Remaining),
	}
}

// ApplyBalanceDelta returns the customer's updated running balance:
//
//	balance - (oldRemaining ?? 0) + newRemaining
//
// This is the only mutation path for customer balances. Call it exactly once
// per save: insert with oldRemaining nil, update with the invoice's
// previously stored remaining, delete with newRemaining zero.
func ApplyBalanceDelta(balance, newRemaining decimal.Decimal, oldRemaining *decimal.Decimal) decimal.Decimal {
	if oldRemaining != nil {
		balance = balance.Sub(*oldRemaining)
	}
	return balance.Add(newRemaining)
}
