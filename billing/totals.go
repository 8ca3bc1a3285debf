/*
totals.go - Invoice totals computation and line-item composition

PURPOSE:
  Turns an InvoiceDraft into InvoiceTotals and enforces the two composition
  rules that matter when building a draft:
  1. A product+unit combination appears at most once; adding it again merges
     quantities into the existing line.
  2. A merged quantity may never exceed the available stock reported by the
     catalog collaborator.

ALGORITHM (ComputeTotals):
  subtotal   = sum(quantity * unitPrice) at full precision
  taxAmount  = round2(subtotal * taxRate / 100)
  grandTotal = subtotal + taxAmount + shipping - discount
  remaining  = grandTotal - paidAmount

EDGE CASES:
  - A discount larger than subtotal+tax+shipping yields a NEGATIVE grand
    total. This is deliberate: the expression is unclamped.
  - Tax rates above 100% are accepted; they are unusual but mathematically
    valid.
  - ComputeTotals never fails. Non-finite input is zeroed before it can
    reach this package (see MoneyFromFloat).

SEE ALSO:
  - types.go: InvoiceDraft, InvoiceTotals
  - snapshot.go: What happens to Remaining at save time
*/
package billing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// StockLookup reports how much of a product can be sold in a given unit.
// The billing engine only consults it for the stock-ceiling guard; it does
// not own or mutate stock.
type StockLookup interface {
	AvailableStock(productID ProductID, unit Unit) (decimal.Decimal, error)
}

// ComputeTotals derives all invoice figures from a draft. Pure and total:
// it always returns a result and never mutates its input.
func ComputeTotals(draft InvoiceDraft) InvoiceTotals {
	subtotal := decimal.Zero
	for _, item := range draft.Items {
		subtotal = subtotal.Add(item.Total())
	}

	taxAmount := Round2(subtotal.Mul(draft.TaxRatePercent).Div(hundred))
	grandTotal := subtotal.Add(taxAmount).Add(draft.Shipping).Sub(draft.Discount)
	remaining := grandTotal.Sub(draft.PaidAmount)

	return InvoiceTotals{
		Subtotal:   subtotal,
		TaxAmount:  taxAmount,
		GrandTotal: grandTotal,
		Remaining:  remaining,
	}
}

// AddLineItem returns a new draft with the item applied.
//
// If a line for the same product+unit already exists the quantities are
// merged into that line instead of appending a duplicate row. Before the
// draft is returned the merged quantity is checked against the available
// stock reported by the lookup; exceeding it fails with an
// InsufficientStockError carrying the maximum quantity that could still be
// added.
func AddLineItem(draft InvoiceDraft, stock StockLookup, item LineItem) (InvoiceDraft, error) {
	available, err := stock.AvailableStock(item.ProductID, item.Unit)
	if err != nil {
		return draft, err
	}

	existing := decimal.Zero
	idx := -1
	for i, li := range draft.Items {
		if li.ProductID == item.ProductID && li.Unit == item.Unit {
			existing = li.Quantity
			idx = i
			break
		}
	}

	merged := existing.Add(item.Quantity)
	if merged.GreaterThan(available) {
		return draft, &InsufficientStockError{
			ProductID: item.ProductID,
			Name:      item.Name,
			Unit:      item.Unit,
			Available: available,
			Requested: merged,
			Addable:   available.Sub(existing),
		}
	}

	items := make([]LineItem, len(draft.Items))
	copy(items, draft.Items)
	if idx >= 0 {
		items[idx].Quantity = merged
	} else {
		items = append(items, item)
	}

	out := draft
	out.Items = items
	return out, nil
}
