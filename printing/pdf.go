/*
Package printing renders saved invoices to printable PDF documents.

The layout follows the till receipt the application prints: header with
invoice number and date, the line-item table, the totals block, and the
frozen balance section (previous balance, balance plus this invoice, paid,
new balance). All figures come from the invoice's stored totals and
snapshot; nothing is recomputed here.
*/
package printing

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/M7sN2/asilsys-server/billing"
	"github.com/M7sN2/asilsys-server/invoicing"
)

// Options controls the document header.
type Options struct {
	CompanyName string
	Currency    string // symbol appended to amounts, e.g. "SAR"
}

func money(d decimal.Decimal, currency string) string {
	s := billing.Round2(d).StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// RenderInvoice writes the invoice as a PDF to w. The customer provides the
// name on the bill; the balance section uses the invoice's display snapshot
// against the customer's current balance (stored snapshot when present,
// legacy fallback otherwise).
func RenderInvoice(w io.Writer, inv invoicing.Invoice, cust invoicing.Customer, opts Options) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Invoice #%d", inv.Number), false)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	title := opts.CompanyName
	if title == "" {
		title = "Sales Invoice"
	}
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Invoice #%d", inv.Number), "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, inv.CreatedAt.Format("2006-01-02 15:04"), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 7, "Customer: "+cust.Name, "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// Line-item table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(70, 8, "Product", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Unit", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, li := range inv.Items {
		pdf.CellFormat(70, 7, li.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, string(li.Unit), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, li.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, money(li.UnitPrice, ""), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, money(li.Total(), ""), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Totals block
	totalsRow := func(label string, amount decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(120, 7, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, money(amount, opts.Currency), "", 1, "R", false, 0, "")
	}

	totalsRow("Subtotal", inv.Totals.Subtotal, false)
	if !inv.Totals.TaxAmount.IsZero() {
		totalsRow(fmt.Sprintf("Tax (%s%%)", inv.TaxRatePercent), inv.Totals.TaxAmount, false)
	}
	if !inv.Shipping.IsZero() {
		totalsRow("Shipping", inv.Shipping, false)
	}
	if !inv.Discount.IsZero() {
		totalsRow("Discount", inv.Discount.Neg(), false)
	}
	totalsRow("Total", inv.Totals.GrandTotal, true)
	totalsRow("Paid", inv.PaidAmount, false)
	totalsRow("Remaining", inv.Totals.Remaining, true)
	pdf.Ln(4)

	// Balance section - the frozen snapshot, never recomputed
	snap := inv.DisplaySnapshot(cust.Balance)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, "Account Balance", "T", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	balanceRow := func(label string, amount decimal.Decimal) {
		pdf.CellFormat(60, 7, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, money(amount, opts.Currency), "", 1, "L", false, 0, "")
	}
	balanceRow("Previous balance", snap.OldBalance)
	balanceRow("Balance + invoice", snap.OldBalancePlusTotal)
	balanceRow("New balance", snap.NewBalance)

	// Footer
	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "Printed "+time.Now().Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")

	return pdf.Output(w)
}
